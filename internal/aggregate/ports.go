package aggregate

import (
	"context"
	"time"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

// EventLog is the append-only record of completed deeds. Appends are
// idempotent on event id; the log is the source every total can be rebuilt
// from.
type EventLog interface {
	Append(ctx context.Context, e *domain.DeedEvent) error

	// ScanRange streams events with OccurredAt in [start, end) in
	// (occurred_at, id) order. Zero bounds mean the full log.
	ScanRange(ctx context.Context, start, end time.Time, fn func(*domain.DeedEvent) error) error
}

// AddResult reports one per-period increment.
type AddResult struct {
	Total int64
	// Applied is false when this (event, period) pair had already been
	// counted; the call changed nothing and Total is the standing total.
	Applied bool
	// WasFinalized is true when the increment landed in a period that had
	// already been finalized, i.e. the event arrived with clock skew.
	WasFinalized bool
}

// TotalsStore is the mutable shared state behind aggregation: one
// increment-or-create cell per (user, period). Implementations must make
// AddPoints atomic so concurrent events for the same user never lose an
// update, and must swap ReplaceTotals in atomically (shadow write, then
// rename) so readers never observe a half-written recompute.
type TotalsStore interface {
	// AddPoints applies one event's points to (userID, p) at most once. The
	// (event, period) dedupe marker and the increment move together
	// atomically, so replaying an event after a partial failure skips every
	// period it already reached instead of double-counting it.
	AddPoints(ctx context.Context, eventID, userID string, p domain.Period, points int64, occurredAt, now time.Time) (AddResult, error)

	UserTotal(ctx context.Context, userID string, p domain.Period) (domain.UserPeriodTotal, error)
	Snapshot(ctx context.Context, p domain.Period) ([]domain.UserPeriodTotal, error)

	// Finalize marks p immutable; the bool is false when p was already
	// finalized (ticks are idempotent). Reopen clears the marker for
	// clock-skewed late arrivals.
	Finalize(ctx context.Context, p domain.Period) (bool, error)
	Reopen(ctx context.Context, p domain.Period) error

	// ReplaceTotals atomically swaps the full totals set for p.
	ReplaceTotals(ctx context.Context, p domain.Period, totals []domain.UserPeriodTotal) error
}

// CohortResolver looks up the cohorts a user belongs to, e.g. their
// geographic district. Read-only; consumed by the ranker.
type CohortResolver interface {
	Cohorts(ctx context.Context, userID string) ([]string, error)
}

// FinalizePublisher notifies downstream consumers that a period closed.
type FinalizePublisher interface {
	PublishFinalized(ctx context.Context, p domain.Period, finalizedAt time.Time) error
}

// NoopPublisher satisfies FinalizePublisher when messaging is not wired
// (dev without a broker).
type NoopPublisher struct{}

func (NoopPublisher) PublishFinalized(context.Context, domain.Period, time.Time) error { return nil }
