package commands

import (
	"fmt"

	"kmeal-backend/lib/mealstore"
	"kmeal-backend/lib/mealstore/db"
	"kmeal-backend/lib/serviceutil"
	"kmeal-backend/lib/sqliteutil"

	"github.com/spf13/cobra"
)

var exportDb *string
var exportStart *string
var exportEnd *string
var exportCsv *string
var exportJson *string

func init() {
	exportDb = exportCmd.Flags().String("db", "meals.db", "The database to read stored menus from.")
	exportStart = exportCmd.Flags().String("start", "", "First date to export (YYYY-MM-DD, default unbounded).")
	exportEnd = exportCmd.Flags().String("end", "", "Last date to export inclusive (YYYY-MM-DD, default unbounded).")
	exportCsv = exportCmd.Flags().String("csv", "", "Export to this CSV file.")
	exportJson = exportCmd.Flags().String("json", "", "Export to this JSON file.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--db <path/to/meals.db>] [--csv <out.csv>] [--json <out.json>]",
	Short: "Re-exports previously stored menus to CSV and/or JSON.",
	Run: func(cmd *cobra.Command, args []string) {
		if *exportCsv == "" && *exportJson == "" {
			serviceutil.Fatal("nothing to do", fmt.Errorf("pass --csv and/or --json"))
		}

		database, err := sqliteutil.OpenDB(db.Schema, *exportDb)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer database.Close()

		store := mealstore.NewStore(database)
		records, err := store.ListRecords(cmd.Context(), *exportStart, *exportEnd)
		if err != nil {
			serviceutil.Fatal("failed to load stored menus", err)
		}

		if *exportCsv != "" {
			err := mealstore.ExportCSV(*exportCsv, records)
			if err != nil {
				serviceutil.Fatal("failed to export csv", err)
			}
		}
		if *exportJson != "" {
			err := mealstore.ExportJSON(*exportJson, records)
			if err != nil {
				serviceutil.Fatal("failed to export json", err)
			}
		}

		fmt.Printf("exported %d menu entries\n", len(records))
	},
}
