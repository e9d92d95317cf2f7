package aggregate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hasanat-app/deeds-service/internal/domain"
	"github.com/hasanat-app/deeds-service/internal/period"
)

// Scheduler drives aggregation: OnEvent for arriving deeds, OnTick for period
// rollovers. Ticks finalize elapsed periods exactly once and isolate per-period
// failures so one bad finalize never aborts the rest.
type Scheduler struct {
	svc     *Service
	store   TotalsStore
	periods *period.Resolver
	clock   Clock
	pub     FinalizePublisher

	interval time.Duration

	mu       sync.Mutex
	lastSeen map[domain.PeriodKind]domain.Period
}

func NewScheduler(svc *Service, store TotalsStore, periods *period.Resolver, clock Clock, pub FinalizePublisher, interval time.Duration) *Scheduler {
	if pub == nil {
		pub = NoopPublisher{}
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		svc:      svc,
		store:    store,
		periods:  periods,
		clock:    clock,
		pub:      pub,
		interval: interval,
		lastSeen: make(map[domain.PeriodKind]domain.Period),
	}
}

// OnEvent forwards an arriving deed to the aggregator.
func (s *Scheduler) OnEvent(ctx context.Context, e *domain.DeedEvent) (*ApplyResult, error) {
	return s.svc.Apply(ctx, e)
}

// OnTick checks whether the current day/week/month rolled over since the last
// tick and finalizes the elapsed periods. Running it twice at the same instant
// is a no-op beyond the first: rollover detection keys off last-seen periods
// and the store's Finalize is itself idempotent. On the first tick of a
// process the immediately-previous period is finalized too, so a restart that
// straddles a boundary still closes the window it slept through. Failures are
// collected per period, never aborting the remaining work.
func (s *Scheduler) OnTick(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, cur := range []domain.Period{s.periods.Day(now), s.periods.Week(now), s.periods.Month(now)} {
		prev, ok := s.lastSeen[cur.Kind]
		s.lastSeen[cur.Kind] = cur
		if !ok {
			// Fresh process: the store, not memory, knows whether the
			// period preceding the current one was ever closed.
			p, err := s.previous(cur)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := s.finalize(ctx, p, now); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if prev == cur {
			// Still inside the same window.
			continue
		}
		if err := s.finalize(ctx, prev, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// previous returns the period of the same kind immediately before p.
func (s *Scheduler) previous(p domain.Period) (domain.Period, error) {
	start, _, err := s.periods.Bounds(p)
	if err != nil {
		return domain.Period{}, err
	}
	return s.periods.PeriodAt(p.Kind, start.Add(-time.Nanosecond))
}

func (s *Scheduler) finalize(ctx context.Context, p domain.Period, now time.Time) error {
	fresh, err := s.store.Finalize(ctx, p)
	if err != nil {
		log.Error().Err(err).Str("period", p.String()).Msg("finalize failed")
		return err
	}
	if !fresh {
		return nil
	}
	periodsFinalizedTotal.WithLabelValues(string(p.Kind)).Inc()
	log.Info().Str("period", p.String()).Msg("period finalized")

	if err := s.pub.PublishFinalized(ctx, p, now); err != nil {
		// The period is finalized regardless; delivery is best effort.
		log.Warn().Err(err).Str("period", p.String()).Msg("finalize publish failed")
	}
	return nil
}

// Run ticks on the configured interval until ctx is cancelled. An immediate
// first tick seeds the last-seen periods and closes whichever previous
// periods the process slept through.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.OnTick(ctx, s.clock.Now()); err != nil {
		log.Error().Err(err).Msg("initial tick failed")
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-t.C:
			if err := s.OnTick(ctx, s.clock.Now()); err != nil {
				log.Error().Err(err).Msg("tick failed")
			}
		}
	}
}
