// Package postgres backs the append-only deed event log and the cohort
// lookup. Totals never live here; they are always derivable from this log.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

const scanBatchSize = 500

type EventLog struct {
	db *sql.DB
}

func NewEventLog(db *sql.DB) *EventLog { return &EventLog{db: db} }

// Append stores one event. Re-appending an id is a no-op, so the log itself
// is a durable dedupe line behind the store's applied markers.
func (l *EventLog) Append(ctx context.Context, e *domain.DeedEvent) error {
	_, err := l.db.ExecContext(ctx, insertEventSQL,
		e.ID, e.UserID, e.DeedID, e.PointValue, e.OccurredAt, e.RecordedAt,
	)
	return err
}

// ScanRange streams events with occurred_at in [start, end) in
// (occurred_at, id) order, batching with a keyset cursor so a large period
// never needs one unbounded result set. Zero bounds scan the whole log.
func (l *EventLog) ScanRange(ctx context.Context, start, end time.Time, fn func(*domain.DeedEvent) error) error {
	unbounded := start.IsZero() && end.IsZero()

	cursorAt := time.Time{}
	cursorID := ""

	for {
		var rows *sql.Rows
		var err error
		if unbounded {
			rows, err = l.db.QueryContext(ctx, scanAllSQL, cursorAt, cursorID, scanBatchSize)
		} else {
			rows, err = l.db.QueryContext(ctx, scanRangeSQL, start, end, cursorAt, cursorID, scanBatchSize)
		}
		if err != nil {
			return err
		}

		n := 0
		for rows.Next() {
			var e domain.DeedEvent
			if err := rows.Scan(&e.ID, &e.UserID, &e.DeedID, &e.PointValue, &e.OccurredAt, &e.RecordedAt); err != nil {
				rows.Close()
				return err
			}
			n++
			cursorAt = e.OccurredAt
			cursorID = e.ID
			if err := fn(&e); err != nil {
				rows.Close()
				return err
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if n < scanBatchSize {
			return nil
		}
	}
}
