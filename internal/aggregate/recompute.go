package aggregate

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

// Recompute rebuilds every user's total for p from the event log and swaps
// the result in atomically. It is convergent: running it after any sequence
// of Apply calls (including partial failures) yields the same totals a clean
// replay would. Safe to run while Apply continues; readers see either the old
// snapshot or the new one, never a mix. Cancelling the context discards the
// shadow state.
func (s *Service) Recompute(ctx context.Context, p domain.Period) ([]domain.UserPeriodTotal, error) {
	start, end, err := s.periods.Bounds(p)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	acc := make(map[string]*domain.UserPeriodTotal)
	seen := make(map[string]struct{})

	scanErr := s.log.ScanRange(ctx, start, end, func(e *domain.DeedEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return nil
		}
		seen[e.ID] = struct{}{}

		t, ok := acc[e.UserID]
		if !ok {
			t = &domain.UserPeriodTotal{UserID: e.UserID, Period: p, FirstQualifyingAt: e.OccurredAt}
			acc[e.UserID] = t
		}
		t.TotalPoints += e.PointValue
		if e.OccurredAt.Before(t.FirstQualifyingAt) {
			t.FirstQualifyingAt = e.OccurredAt
		}
		t.LastUpdatedAt = now
		return nil
	})
	if scanErr != nil {
		recomputeRunsTotal.WithLabelValues("interrupted").Inc()
		if errors.Is(scanErr, context.Canceled) || errors.Is(scanErr, context.DeadlineExceeded) {
			return nil, domain.ErrRecomputeInterrupted("recompute cancelled during scan")
		}
		return nil, domain.ErrStoreUnavailable("event log scan failed: " + scanErr.Error())
	}

	totals := make([]domain.UserPeriodTotal, 0, len(acc))
	for _, t := range acc {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].UserID < totals[j].UserID })

	if err := s.store.ReplaceTotals(ctx, p, totals); err != nil {
		recomputeRunsTotal.WithLabelValues("interrupted").Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrRecomputeInterrupted("recompute cancelled during swap")
		}
		return nil, domain.ErrStoreUnavailable("totals swap failed: " + err.Error())
	}

	recomputeRunsTotal.WithLabelValues("ok").Inc()
	log.Info().
		Str("period", p.String()).
		Int("users", len(totals)).
		Int("events", len(seen)).
		Msg("period recomputed")
	return totals, nil
}
