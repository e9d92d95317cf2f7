// Package period owns every calendar boundary computation in the service.
// All of it runs in the single configured reference timezone; no caller may
// derive a day, week, or month edge on its own.
package period

import (
	"fmt"
	"strings"
	"time"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// Resolver maps instants to aggregation periods. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	loc       *time.Location
	weekStart time.Weekday
}

func NewResolver(tz string, weekStart time.Weekday) (*Resolver, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load reference timezone %q: %w", tz, err)
	}
	return &Resolver{loc: loc, weekStart: weekStart}, nil
}

func (r *Resolver) Location() *time.Location { return r.loc }

// StartOfDay floors t to midnight of its calendar date in the reference
// timezone. Delegating to time.Date keeps DST correct: a day may be 23 or 25
// wall-clock hours but still has exactly one midnight.
func (r *Resolver) StartOfDay(t time.Time) time.Time {
	lt := t.In(r.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, r.loc)
}

// StartOfWeek floors t to midnight of the most recent configured
// first-day-of-week (inclusive).
func (r *Resolver) StartOfWeek(t time.Time) time.Time {
	day := r.StartOfDay(t)
	back := (int(day.Weekday()) - int(r.weekStart) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// StartOfMonth floors t to midnight of the first of its month.
func (r *Resolver) StartOfMonth(t time.Time) time.Time {
	lt := t.In(r.loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, r.loc)
}

// Day returns the day period containing t. Periods are half-open
// [start, end): an instant exactly on a boundary belongs to the period
// beginning there.
func (r *Resolver) Day(t time.Time) domain.Period {
	return domain.Period{Kind: domain.KindDay, Key: r.StartOfDay(t).Format(dayKeyLayout)}
}

// Week returns the week period containing t, keyed by its start date. The
// week key is derived from the same StartOfWeek floor the aggregator and
// scheduler use, never computed independently.
func (r *Resolver) Week(t time.Time) domain.Period {
	return domain.Period{Kind: domain.KindWeek, Key: r.StartOfWeek(t).Format(dayKeyLayout)}
}

// Month returns the month period containing t.
func (r *Resolver) Month(t time.Time) domain.Period {
	return domain.Period{Kind: domain.KindMonth, Key: r.StartOfMonth(t).Format(monthKeyLayout)}
}

// PeriodsFor returns every period an event at t contributes to:
// day, week, month, all-time.
func (r *Resolver) PeriodsFor(t time.Time) []domain.Period {
	return []domain.Period{r.Day(t), r.Week(t), r.Month(t), domain.AllTime}
}

// Bounds returns the half-open [start, end) window of p in the reference
// timezone. The all-time period has no bounds; both returns are zero.
func (r *Resolver) Bounds(p domain.Period) (time.Time, time.Time, error) {
	switch p.Kind {
	case domain.KindDay:
		start, err := time.ParseInLocation(dayKeyLayout, p.Key, r.loc)
		if err != nil {
			return time.Time{}, time.Time{}, domain.ErrValidation("bad day key: " + p.Key)
		}
		return start, start.AddDate(0, 0, 1), nil
	case domain.KindWeek:
		start, err := time.ParseInLocation(dayKeyLayout, p.Key, r.loc)
		if err != nil {
			return time.Time{}, time.Time{}, domain.ErrValidation("bad week key: " + p.Key)
		}
		if start.Weekday() != r.weekStart {
			return time.Time{}, time.Time{}, domain.ErrValidation("week key does not start the week: " + p.Key)
		}
		return start, start.AddDate(0, 0, 7), nil
	case domain.KindMonth:
		start, err := time.ParseInLocation(monthKeyLayout, p.Key, r.loc)
		if err != nil {
			return time.Time{}, time.Time{}, domain.ErrValidation("bad month key: " + p.Key)
		}
		return start, start.AddDate(0, 1, 0), nil
	case domain.KindAllTime:
		return time.Time{}, time.Time{}, nil
	}
	return time.Time{}, time.Time{}, domain.ErrValidation("unknown period kind: " + string(p.Kind))
}

// PeriodAt resolves (kind, instant) to the period containing the instant.
func (r *Resolver) PeriodAt(kind domain.PeriodKind, t time.Time) (domain.Period, error) {
	switch kind {
	case domain.KindDay:
		return r.Day(t), nil
	case domain.KindWeek:
		return r.Week(t), nil
	case domain.KindMonth:
		return r.Month(t), nil
	case domain.KindAllTime:
		return domain.AllTime, nil
	}
	return domain.Period{}, domain.ErrValidation("unknown period kind: " + string(kind))
}

// ParseWeekday maps a config value like "monday" to its time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
