package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kmeal-backend/lib/configutil"
	"kmeal-backend/lib/mealcrawl"
	"kmeal-backend/lib/mealstore"
	"kmeal-backend/lib/mealstore/db"
	"kmeal-backend/lib/restyutil"
	"kmeal-backend/lib/scrapers/ktportal"
	"kmeal-backend/lib/serviceutil"
	"kmeal-backend/lib/sqliteutil"
	"kmeal-backend/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	Portal struct {
		ID           string `json:"id"`
		Password     string `json:"password"`
		IPAddress    string `json:"ip_address"`
		SecondFactor bool   `json:"second_factor"`
	} `json:"portal"`
	Crawl struct {
		RequestDelayMs int `json:"request_delay_ms"`
		DayDelayMs     int `json:"day_delay_ms"`
	} `json:"crawl"`
}

var crawlStart *string
var crawlEnd *string
var crawlDb *string
var crawlCsv *string
var crawlJson *string

func init() {
	crawlStart = crawlCmd.Flags().String("start", "", "First date to crawl (YYYY-MM-DD, default today).")
	crawlEnd = crawlCmd.Flags().String("end", "", "Last date to crawl inclusive (YYYY-MM-DD, default --start).")
	crawlDb = crawlCmd.Flags().String("db", "meals.db", "The database to write crawl results to.")
	crawlCsv = crawlCmd.Flags().String("csv", "", "Also export the crawled records to this CSV file.")
	crawlJson = crawlCmd.Flags().String("json", "", "Also export the crawled records to this JSON file.")
	rootCmd.AddCommand(crawlCmd)
}

func parseDateRange() (mealcrawl.DateRange, error) {
	start := timezone.Now()
	if *crawlStart != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *crawlStart, timezone.Location)
		if err != nil {
			return mealcrawl.DateRange{}, fmt.Errorf("bad --start: %w", err)
		}
		start = parsed
	}
	end := start
	if *crawlEnd != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *crawlEnd, timezone.Location)
		if err != nil {
			return mealcrawl.DateRange{}, fmt.Errorf("bad --end: %w", err)
		}
		end = parsed
	}
	if end.Before(start) {
		return mealcrawl.DateRange{}, fmt.Errorf("--end is before --start")
	}
	return mealcrawl.DateRange{Start: start, End: end}, nil
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--start <date>] [--end <date>] [--db <path/to/output.db>]",
	Short: "Logs into the portal, crawls the date range and stores every menu found.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		dates, err := parseDateRange()
		if err != nil {
			serviceutil.Fatal("failed to parse date range", err)
		}

		var instrument restyutil.InstrumentOutput
		if *verbose {
			instrument = restyutil.NewFilesystemOutput(".dev/resty/kmeal")
		}

		auth := ktportal.NewAuthenticator(ktportal.AuthenticatorOptions{
			PortalID:         cfg.Portal.ID,
			PortalPW:         cfg.Portal.Password,
			IPAddress:        cfg.Portal.IPAddress,
			SecondFactor:     cfg.Portal.SecondFactor,
			InstrumentOutput: instrument,
		})
		client := ktportal.NewClient(ktportal.ClientOptions{
			InstrumentOutput: instrument,
		})
		crawler := mealcrawl.New(auth, client, mealcrawl.Options{
			RequestDelay: time.Duration(cfg.Crawl.RequestDelayMs) * time.Millisecond,
			DayDelay:     time.Duration(cfg.Crawl.DayDelayMs) * time.Millisecond,
		})

		runStarted := timezone.Now()
		grid := ktportal.DefaultGrid()

		slog.Info("starting crawl",
			"start", dates.Start.Format("2006-01-02"),
			"end", dates.End.Format("2006-01-02"),
			"days", dates.Days(),
			"targets_per_day", grid.Size(),
		)

		result, err := crawler.Run(cmd.Context(), dates, grid)
		if err != nil && !errors.Is(err, context.Canceled) {
			serviceutil.Fatal("crawl aborted", err)
		}
		if errors.Is(err, context.Canceled) {
			slog.Warn("crawl interrupted, persisting partial result")
		}

		database, err := sqliteutil.OpenDB(db.Schema, *crawlDb)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer database.Close()

		store := mealstore.NewStore(database)
		stats, err := store.SaveRecords(context.Background(), result.Records)
		if err != nil {
			serviceutil.Fatal("failed to save records", err)
		}
		err = store.SaveFailures(context.Background(), runStarted, result.Failures)
		if err != nil {
			serviceutil.Fatal("failed to save failure log", err)
		}

		if *crawlCsv != "" {
			err := mealstore.ExportCSV(*crawlCsv, result.Records)
			if err != nil {
				serviceutil.Fatal("failed to export csv", err)
			}
		}
		if *crawlJson != "" {
			err := mealstore.ExportJSON(*crawlJson, result.Records)
			if err != nil {
				serviceutil.Fatal("failed to export json", err)
			}
		}

		printRunSummary(result, stats)
	},
}

func printRunSummary(result mealcrawl.CrawlResult, stats mealstore.SaveStats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Records", "Failures", "Saved", "Skipped"})
	t.AppendRow(table.Row{len(result.Records), len(result.Failures), stats.Saved, stats.Skipped})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(result.Failures) == 0 {
		return
	}

	f := table.NewWriter()
	f.SetOutputMirror(os.Stdout)
	f.AppendHeader(table.Row{"Target", "Kind", "Message"})
	for _, failure := range result.Failures {
		f.AppendRow(table.Row{failure.Target.String(), failure.Kind, failure.Message})
	}
	f.SetStyle(table.StyleRounded)
	f.Render()
}
