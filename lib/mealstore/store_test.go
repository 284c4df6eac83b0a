package mealstore

import (
	"context"
	"testing"
	"time"

	"kmeal-backend/lib/mealcrawl"
	"kmeal-backend/lib/mealstore/db"
	"kmeal-backend/lib/scrapers/ktportal"
	"kmeal-backend/lib/sqliteutil"
	"kmeal-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	database, err := sqliteutil.OpenDB(db.Schema, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testRecords() []ktportal.MenuRecord {
	lunch := ktportal.MenuRecord{
		ID:         ktportal.MenuID("2025-01-15", ktportal.Lunch, "Korean Food (한식)"),
		Date:       "2025-01-15",
		DiningTime: ktportal.Lunch,
		Place:      "Korean Food (한식)",
		Price:      5000,
		Kcal:       650,
		Items:      []string{"김치찌개", "계란말이", "밥", "김치"},
	}
	dinner := ktportal.MenuRecord{
		ID:         ktportal.MenuID("2025-01-16", ktportal.Dinner, "코너1"),
		Date:       "2025-01-16",
		DiningTime: ktportal.Dinner,
		Place:      "코너1",
		Price:      4500,
		Kcal:       720,
		Items:      []string{"제육볶음", "밥"},
	}
	return []ktportal.MenuRecord{lunch, dinner}
}

func TestSaveRecordsIsIdempotent(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:mealstore")
	defer cleanup()

	ctx := context.Background()
	store := newTestStore(t)
	records := testRecords()

	stats, err := store.SaveRecords(ctx, records)
	require.NoError(t, err)
	require.Equal(t, SaveStats{Saved: 2, Skipped: 0}, stats)

	stats, err = store.SaveRecords(ctx, records)
	require.NoError(t, err)
	require.Equal(t, SaveStats{Saved: 0, Skipped: 2}, stats)

	listed, err := store.ListRecords(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestListRecords(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:mealstore")
	defer cleanup()

	ctx := context.Background()
	store := newTestStore(t)
	records := testRecords()

	_, err := store.SaveRecords(ctx, records)
	require.NoError(t, err)

	listed, err := store.ListRecords(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// date ascending, items back in source order
	require.Equal(t, records[0], listed[0])
	require.Equal(t, records[1], listed[1])

	onlyFirst, err := store.ListRecords(ctx, "2025-01-15", "2025-01-15")
	require.NoError(t, err)
	require.Len(t, onlyFirst, 1)
	require.Equal(t, "2025-01-15", onlyFirst[0].Date)

	none, err := store.ListRecords(ctx, "2025-02-01", "2025-02-28")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSaveFailures(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:mealstore")
	defer cleanup()

	ctx := context.Background()
	store := newTestStore(t)
	runStarted := time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)

	err := store.SaveFailures(ctx, runStarted, []mealcrawl.Failure{
		{
			Target: ktportal.CrawlTarget{
				Date:       "2025-01-15",
				DiningTime: ktportal.Lunch,
				Restaurant: "Korean Food (한식)",
				Campus:     "Campus1",
			},
			Kind:    mealcrawl.KindProtocol,
			Message: "ErrorCode -1: sql error",
		},
	})
	require.NoError(t, err)

	var count int
	var kind, message string
	row := store.db.QueryRowContext(ctx,
		`SELECT COUNT(*), kind, message FROM crawl_failures WHERE run_started_at = ?`,
		runStarted.Unix(),
	)
	require.NoError(t, row.Scan(&count, &kind, &message))
	require.Equal(t, 1, count)
	require.Equal(t, "protocol", kind)
	require.Equal(t, "ErrorCode -1: sql error", message)
}
