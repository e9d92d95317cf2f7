package domain

// PeriodKind is an aggregation window.
type PeriodKind string

const (
	KindDay     PeriodKind = "day"
	KindWeek    PeriodKind = "week"
	KindMonth   PeriodKind = "month"
	KindAllTime PeriodKind = "all"
)

func (k PeriodKind) Valid() bool {
	switch k {
	case KindDay, KindWeek, KindMonth, KindAllTime:
		return true
	}
	return false
}

// Period identifies one aggregation window. Key is the formatted start of the
// window in the reference timezone ("2026-02-19", "2026-02-16" for the week
// beginning that date, "2026-02"), or "all" for the all-time window.
type Period struct {
	Kind PeriodKind
	Key  string
}

// AllTime is the single open-ended period every event belongs to.
var AllTime = Period{Kind: KindAllTime, Key: "all"}

func (p Period) String() string { return string(p.Kind) + ":" + p.Key }
