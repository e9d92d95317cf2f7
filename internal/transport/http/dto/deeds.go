package dto

import "time"

type SubmitDeedReq struct {
	// EventID lets retrying clients keep ingestion idempotent; generated
	// server-side when absent.
	EventID    string    `json:"event_id" validate:"omitempty,max=64"`
	DeedID     string    `json:"deed_id" validate:"required,max=80"`
	PointValue int64     `json:"point_value" validate:"required,gt=0"`
	OccurredAt time.Time `json:"occurred_at" validate:"required"`
}

type RecomputeReq struct {
	PeriodKind string `json:"period_kind" validate:"required,oneof=day week month all"`
	PeriodKey  string `json:"period_key" validate:"required,max=10"`
}

type PeriodTotalResp struct {
	PeriodKind    string     `json:"period_kind"`
	PeriodKey     string     `json:"period_key"`
	TotalPoints   int64      `json:"total_points"`
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
}

type SubmitDeedResp struct {
	EventID string `json:"event_id"`
	// Status is "applied", "duplicate", or "applied_late" for clock-skewed
	// events that reopened a finalized period.
	Status string            `json:"status"`
	Totals []PeriodTotalResp `json:"totals,omitempty"`
}

type LeaderboardEntryResp struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	TotalPoints int64  `json:"total_points"`
}

type LeaderboardResp struct {
	PeriodKind    string                 `json:"period_kind"`
	PeriodKey     string                 `json:"period_key"`
	Cohort        string                 `json:"cohort,omitempty"`
	LastUpdatedAt *time.Time             `json:"last_updated_at,omitempty"`
	Entries       []LeaderboardEntryResp `json:"entries"`
}

type RecomputeResp struct {
	PeriodKind string `json:"period_kind"`
	PeriodKey  string `json:"period_key"`
	Users      int    `json:"users"`
}
