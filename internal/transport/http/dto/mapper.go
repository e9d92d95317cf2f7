package dto

import (
	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/domain"
)

func FromTotal(t domain.UserPeriodTotal) PeriodTotalResp {
	out := PeriodTotalResp{
		PeriodKind:  string(t.Period.Kind),
		PeriodKey:   t.Period.Key,
		TotalPoints: t.TotalPoints,
	}
	if !t.LastUpdatedAt.IsZero() {
		lu := t.LastUpdatedAt
		out.LastUpdatedAt = &lu
	}
	return out
}

func FromApplyResult(res *aggregate.ApplyResult) SubmitDeedResp {
	out := SubmitDeedResp{EventID: res.Event.ID, Status: "applied"}
	switch {
	case res.Deduplicated:
		out.Status = "duplicate"
	case res.ClockSkew:
		out.Status = "applied_late"
	}
	for _, t := range res.Totals {
		out.Totals = append(out.Totals, FromTotal(t))
	}
	return out
}

func FromLeaderboard(lb *domain.Leaderboard) LeaderboardResp {
	out := LeaderboardResp{
		PeriodKind: string(lb.Period.Kind),
		PeriodKey:  lb.Period.Key,
		Cohort:     lb.Cohort,
		Entries:    make([]LeaderboardEntryResp, 0, len(lb.Entries)),
	}
	if !lb.LastUpdatedAt.IsZero() {
		lu := lb.LastUpdatedAt
		out.LastUpdatedAt = &lu
	}
	for _, e := range lb.Entries {
		out.Entries = append(out.Entries, LeaderboardEntryResp{
			Rank:        e.Rank,
			UserID:      e.UserID,
			TotalPoints: e.TotalPoints,
		})
	}
	return out
}
