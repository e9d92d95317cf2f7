// Package aggregate turns the append-only deed log into per-period point
// totals and ranked leaderboards.
package aggregate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hasanat-app/deeds-service/internal/domain"
	"github.com/hasanat-app/deeds-service/internal/period"
)

// Service is the aggregator: the sole ingestion point for deed events and
// the owner of full-period recomputes.
type Service struct {
	log     EventLog
	store   TotalsStore
	periods *period.Resolver
	clock   Clock

	maxRetries int
	retryBase  time.Duration
}

func New(eventLog EventLog, store TotalsStore, periods *period.Resolver, clock Clock, maxRetries int, retryBase time.Duration) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryBase <= 0 {
		retryBase = 100 * time.Millisecond
	}
	return &Service{
		log:        eventLog,
		store:      store,
		periods:    periods,
		clock:      clock,
		maxRetries: maxRetries,
		retryBase:  retryBase,
	}
}

// ApplyResult reports what one event did to the caller's totals.
type ApplyResult struct {
	Event *domain.DeedEvent
	// Totals holds the updated total per affected period, in
	// day/week/month/all order.
	Totals []domain.UserPeriodTotal
	// Deduplicated is true when the event id had already been applied and
	// nothing changed.
	Deduplicated bool
	// ClockSkew is true when the event targeted at least one period that was
	// already finalized. The period has been reopened and will be finalized
	// again on the next tick.
	ClockSkew bool
}

// Apply aggregates one event into its day, week, month, and all-time totals.
// Replaying the same event id is a no-op. The event is durably appended to
// the log before any total moves, so a partial failure is always repairable
// by Recompute.
func (s *Service) Apply(ctx context.Context, e *domain.DeedEvent) (*ApplyResult, error) {
	if e == nil {
		return nil, domain.ErrValidation("event is required")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.retry(ctx, func() error { return s.log.Append(ctx, e) }); err != nil {
		return nil, domain.ErrStoreUnavailable("event log append failed: " + err.Error())
	}

	now := s.clock.Now()
	res := &ApplyResult{Event: e}
	applied := false

	for _, p := range s.periods.PeriodsFor(e.OccurredAt) {
		p := p
		var add AddResult
		err := s.retry(ctx, func() error {
			var aerr error
			add, aerr = s.store.AddPoints(ctx, e.ID, e.UserID, p, e.PointValue, e.OccurredAt, now)
			return aerr
		})
		if err != nil {
			// Periods that already took this event keep their (event, period)
			// markers, so retrying the same event id resumes at the failed
			// period instead of double-counting the finished ones.
			return nil, domain.ErrStoreUnavailable("increment failed for " + p.String() + ": " + err.Error())
		}
		if add.Applied {
			applied = true
		}

		total, terr := s.store.UserTotal(ctx, e.UserID, p)
		if terr != nil {
			total = domain.UserPeriodTotal{UserID: e.UserID, Period: p, TotalPoints: add.Total, LastUpdatedAt: now}
		}
		res.Totals = append(res.Totals, total)

		if add.Applied && add.WasFinalized {
			res.ClockSkew = true
			clockSkewTotal.Inc()
			if rerr := s.store.Reopen(ctx, p); rerr != nil {
				log.Error().Err(rerr).Str("period", p.String()).Msg("reopen after clock skew failed")
			}
			log.Warn().
				Str("event_id", e.ID).
				Str("user_id", e.UserID).
				Str("period", p.String()).
				Time("occurred_at", e.OccurredAt).
				Msg("late event reopened finalized period")
		}
	}

	if !applied {
		eventsDedupedTotal.Inc()
		res.Deduplicated = true
		return res, nil
	}
	eventsAppliedTotal.Inc()
	return res, nil
}

// retry runs op with bounded exponential backoff. Context cancellation wins
// over remaining attempts.
func (s *Service) retry(ctx context.Context, op func() error) error {
	var err error
	delay := s.retryBase
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// transient reports whether err is worth retrying. Domain rejections are
// final; everything else at the store boundary is assumed to be a blip.
func transient(err error) bool {
	var ae *domain.AppError
	if errors.As(err, &ae) {
		return ae.Code == domain.CodeStoreUnavailable
	}
	return true
}
