package orders

import (
	"time"

	"shopfloor/internal/model"
)

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(r.Start) && t.Before(r.End)
}

// MonthToDate spans the calendar month of now, midnight to midnight in loc.
func MonthToDate(now time.Time, loc *time.Location) Range {
	now = now.In(loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(0, 1, 0)}
}

// YearToDate spans the calendar year of now, midnight to midnight in loc.
func YearToDate(now time.Time, loc *time.Location) Range {
	now = now.In(loc)
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(1, 0, 0)}
}

// CountInRange counts orders whose start date falls in r. Orders without a
// start date are never counted.
func CountInRange(list []model.Order, r Range) int {
	n := 0
	for _, o := range list {
		if r.Contains(o.StartDate) {
			n++
		}
	}
	return n
}

// Counts computes the MTD, YTD and total counters of one order collection.
func Counts(kind model.Kind, list []model.Order, now time.Time, loc *time.Location) model.CountFamily {
	return model.CountFamily{
		Kind:  kind,
		MTD:   CountInRange(list, MonthToDate(now, loc)),
		YTD:   CountInRange(list, YearToDate(now, loc)),
		Total: len(list),
	}
}
