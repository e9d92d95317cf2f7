package domain

import "time"

// UserPeriodTotal is the running point total for one user in one period.
// It is a sum over DeedEvents, so the final value is independent of the order
// events arrive in. FirstQualifyingAt is the OccurredAt of the first event
// that gave the user points in the period; it is write-once and feeds the
// leaderboard tiebreak.
type UserPeriodTotal struct {
	UserID            string
	Period            Period
	TotalPoints       int64
	FirstQualifyingAt time.Time
	LastUpdatedAt     time.Time
}

// LeaderboardEntry is derived from a totals snapshot, never stored as truth.
type LeaderboardEntry struct {
	Rank        int
	UserID      string
	TotalPoints int64
	Cohort      string
}

// Leaderboard is one ranked read of a period, annotated with how fresh the
// underlying snapshot was.
type Leaderboard struct {
	Period        Period
	Cohort        string
	Entries       []LeaderboardEntry
	LastUpdatedAt time.Time
}
