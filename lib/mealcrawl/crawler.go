package mealcrawl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kmeal-backend/lib/scrapers/ktportal"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mealcrawl")

// Fetcher issues one authenticated meal query for a single dining slot.
type Fetcher interface {
	FetchMenu(ctx context.Context, session *ktportal.Session, target ktportal.CrawlTarget) (*ktportal.MenuRecord, error)
}

// Authenticator establishes a fresh portal session.
type Authenticator interface {
	Login(ctx context.Context) (*ktportal.Session, error)
}

// DateRange is inclusive on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Days() int {
	days := 0
	for day := r.Start; !day.After(r.End); day = day.AddDate(0, 0, 1) {
		days++
	}
	return days
}

type Options struct {
	// RequestDelay spaces out individual queries, DayDelay spaces out
	// whole days. Both exist purely as backpressure against the
	// portal's abuse detection.
	RequestDelay time.Duration
	DayDelay     time.Duration
}

const (
	DefaultRequestDelay = 100 * time.Millisecond
	DefaultDayDelay     = 500 * time.Millisecond
)

// Crawler walks the date × dining-slot grid strictly serially. The
// session it holds is replaced at most once per run, and only between
// target iterations, so no request ever observes a half-updated one.
type Crawler struct {
	auth  Authenticator
	fetch Fetcher
	opts  Options
}

func New(auth Authenticator, fetch Fetcher, opts Options) *Crawler {
	if opts.RequestDelay == 0 {
		opts.RequestDelay = DefaultRequestDelay
	}
	if opts.DayDelay == 0 {
		opts.DayDelay = DefaultDayDelay
	}
	return &Crawler{auth: auth, fetch: fetch, opts: opts}
}

// Run logs in, then issues one query per target per day. Per-target
// failures are accumulated, never propagated; the only fatal error is
// an authentication that cannot be established or re-established, in
// which case no partial result is returned. Cancellation is honored
// at day boundaries and returns the partial result with ctx.Err().
func (c *Crawler) Run(ctx context.Context, dates DateRange, grid ktportal.Grid) (CrawlResult, error) {
	ctx, span := tracer.Start(ctx, "crawler:Run")
	defer span.End()

	session, err := c.auth.Login(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "initial login failed")
		return CrawlResult{}, err
	}

	var result CrawlResult
	renewed := false
	totalDays := dates.Days()
	dayCount := 0

	for day := dates.Start; !day.After(dates.End); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			slog.InfoContext(ctx, "crawl cancelled at day boundary",
				"completed_days", dayCount, "total_days", totalDays)
			return result, err
		}
		if dayCount > 0 {
			time.Sleep(c.opts.DayDelay)
		}
		dayCount++

		date := day.Format("2006-01-02")
		targets := grid.Targets(date)
		slog.InfoContext(ctx, "crawling day",
			"date", date, "day", dayCount, "total_days", totalDays, "targets", len(targets))

		for i, target := range targets {
			if i > 0 {
				time.Sleep(c.opts.RequestDelay)
			}

			// an issued request always runs to completion; only the
			// day boundary above observes cancellation
			record, err := c.fetch.FetchMenu(context.WithoutCancel(ctx), session, target)
			if err == nil {
				if record != nil {
					result.Records = append(result.Records, *record)
				}
				continue
			}

			var authErr *ktportal.AuthError
			if !errors.As(err, &authErr) {
				slog.WarnContext(ctx, "target failed",
					"target", target.String(), "err", err)
				result.Failures = append(result.Failures, Failure{
					Target:  target,
					Kind:    classify(err),
					Message: err.Error(),
				})
				continue
			}

			// the session the portal stopped honoring is terminal for
			// this target either way
			result.Failures = append(result.Failures, Failure{
				Target:  target,
				Kind:    KindAuth,
				Message: err.Error(),
			})

			if renewed {
				span.SetStatus(codes.Error, "session expired twice")
				return CrawlResult{}, err
			}
			slog.WarnContext(ctx, "session expired mid-run, re-authenticating",
				"target", target.String())
			fresh, loginErr := c.auth.Login(ctx)
			if loginErr != nil {
				span.SetStatus(codes.Error, "re-authentication failed")
				return CrawlResult{}, loginErr
			}
			session = fresh
			renewed = true
		}
	}

	slog.InfoContext(ctx, "crawl finished",
		"records", len(result.Records), "failures", len(result.Failures), "days", dayCount)
	return result, nil
}
