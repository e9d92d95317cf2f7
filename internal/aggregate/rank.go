package aggregate

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

// Ranker produces leaderboards from totals snapshots. Any number of readers
// may call it concurrently with writers; it never mutates store state.
type Ranker struct {
	store   TotalsStore
	cohorts CohortResolver
}

func NewRanker(store TotalsStore, cohorts CohortResolver) *Ranker {
	return &Ranker{store: store, cohorts: cohorts}
}

// Less is the leaderboard comparator: points descending, then earlier
// first-qualifying event, then user id. The final clause makes the order a
// strict total order, so two runs over the same snapshot always agree and no
// engine-specific sort behavior can leak into ranks.
func Less(a, b domain.UserPeriodTotal) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if !a.FirstQualifyingAt.Equal(b.FirstQualifyingAt) {
		return a.FirstQualifyingAt.Before(b.FirstQualifyingAt)
	}
	return a.UserID < b.UserID
}

// Rank returns the ordered leaderboard for p, restricted to cohort when one
// is given. Filtering happens before ranks are assigned, so rank numbers are
// positions within the cohort. limit <= 0 means no truncation. Staleness is
// not an error: the best available snapshot is returned, annotated with its
// most recent update time.
func (r *Ranker) Rank(ctx context.Context, p domain.Period, cohort string, limit int) (*domain.Leaderboard, error) {
	totals, err := r.store.Snapshot(ctx, p)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("totals snapshot failed: " + err.Error())
	}

	lb := &domain.Leaderboard{Period: p, Cohort: cohort}
	// Freshness reflects the whole snapshot, not just the cohort slice,
	// so a filtered board reports how current the underlying totals are.
	for _, t := range totals {
		if t.LastUpdatedAt.After(lb.LastUpdatedAt) {
			lb.LastUpdatedAt = t.LastUpdatedAt
		}
	}

	if cohort != "" {
		filtered := totals[:0]
		for _, t := range totals {
			if r.inCohort(ctx, t.UserID, cohort) {
				filtered = append(filtered, t)
			}
		}
		totals = filtered
	}

	sort.Slice(totals, func(i, j int) bool { return Less(totals[i], totals[j]) })

	for i, t := range totals {
		if limit > 0 && i >= limit {
			break
		}
		lb.Entries = append(lb.Entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      t.UserID,
			TotalPoints: t.TotalPoints,
			Cohort:      cohort,
		})
	}
	return lb, nil
}

func (r *Ranker) inCohort(ctx context.Context, userID, cohort string) bool {
	if r.cohorts == nil {
		return false
	}
	ids, err := r.cohorts.Cohorts(ctx, userID)
	if err != nil {
		// One unresolvable user must not fail the whole read; they just
		// drop out of the filtered cohort.
		log.Warn().Err(err).Str("user_id", userID).Msg("cohort lookup failed")
		return false
	}
	for _, id := range ids {
		if id == cohort {
			return true
		}
	}
	return false
}
