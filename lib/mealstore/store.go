package mealstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"kmeal-backend/lib/mealcrawl"
	"kmeal-backend/lib/scrapers/ktportal"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store persists crawl output. Writes are idempotent on the record
// identity: re-applying the same MenuRecord is a skip, not a duplicate.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type SaveStats struct {
	Saved   int
	Skipped int
}

func (s Store) SaveRecords(ctx context.Context, records []ktportal.MenuRecord) (SaveStats, error) {
	var stats SaveStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()

	for _, record := range records {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO meals (id, date, dining_time, place, price, kcal)
			VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID, record.Date, string(record.DiningTime),
			record.Place, record.Price, record.Kcal,
		)
		if err != nil {
			return stats, err
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return stats, err
		}
		if inserted == 0 {
			stats.Skipped++
			continue
		}

		for position, item := range record.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO meal_menu_items (meal_id, position, item)
				VALUES (?, ?, ?)`,
				record.ID, position, item,
			)
			if err != nil {
				return stats, err
			}
		}
		stats.Saved++
	}

	err = tx.Commit()
	if err != nil {
		return stats, err
	}

	slog.InfoContext(ctx, "records persisted",
		"saved", stats.Saved, "skipped", stats.Skipped)
	return stats, nil
}

// SaveFailures appends the run's failure log, tagged with the run
// start time so successive runs stay distinguishable.
func (s Store) SaveFailures(ctx context.Context, runStarted time.Time, failures []mealcrawl.Failure) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, failure := range failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO crawl_failures
				(run_started_at, date, dining_time, restaurant, campus, kind, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runStarted.Unix(),
			failure.Target.Date, string(failure.Target.DiningTime),
			failure.Target.Restaurant, failure.Target.Campus,
			string(failure.Kind), failure.Message,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRecords returns stored menus between two dates inclusive, with
// their items restored in source order. Empty bounds mean unbounded.
func (s Store) ListRecords(ctx context.Context, startDate, endDate string) ([]ktportal.MenuRecord, error) {
	if startDate == "" {
		startDate = "0000-00-00"
	}
	if endDate == "" {
		endDate = "9999-99-99"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, dining_time, place, price, kcal
		FROM meals
		WHERE date >= ? AND date <= ?
		ORDER BY date, dining_time, place`,
		startDate, endDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ktportal.MenuRecord
	for rows.Next() {
		var record ktportal.MenuRecord
		var diningTime string
		err := rows.Scan(
			&record.ID, &record.Date, &diningTime,
			&record.Place, &record.Price, &record.Kcal,
		)
		if err != nil {
			return nil, err
		}
		record.DiningTime = ktportal.DiningTime(diningTime)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		items, err := s.listItems(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Items = items
	}
	return records, nil
}

func (s Store) listItems(ctx context.Context, mealID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item FROM meal_menu_items
		WHERE meal_id = ?
		ORDER BY position`,
		mealID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
