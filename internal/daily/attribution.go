package daily

import (
	"time"

	"example.com/babylog/internal/domain"
)

// AttributionInstant is the instant that decides which day a record counts toward:
// the wake-up time for a completed sleep, the start time for everything else.
func AttributionInstant(a domain.Activity) time.Time {
	if a.Kind == domain.KindSleep && a.EndTime != nil {
		return *a.EndTime
	}
	return a.StartTime
}

// AttributedDate is the calendar day in loc that the record belongs to.
func AttributedDate(a domain.Activity, loc *time.Location) Date {
	return DateOf(AttributionInstant(a), loc)
}

// Belongs reports whether the record is attributed to the window's day.
func Belongs(a domain.Activity, w Window) bool {
	return w.Contains(AttributionInstant(a))
}

// Overlaps is the coarse candidate test a store query applies: any temporal intersection
// with the window, open-ended records extending indefinitely.
func Overlaps(a domain.Activity, w Window) bool {
	if a.StartTime.After(w.End) {
		return false
	}
	return a.EndTime == nil || !a.EndTime.Before(w.Start)
}

// Overnight reports whether a sleep record starts and ends on different calendar days in loc.
func Overnight(a domain.Activity, loc *time.Location) bool {
	if a.Kind != domain.KindSleep || a.EndTime == nil {
		return false
	}
	return DateOf(a.StartTime, loc) != DateOf(*a.EndTime, loc)
}

// AffectedDates lists the distinct attributed days of the given versions of one record,
// skipping nil entries. Callers pass the old and new version of an edited record.
func AffectedDates(loc *time.Location, versions ...*domain.Activity) []Date {
	out := make([]Date, 0, len(versions))
	seen := make(map[Date]struct{}, len(versions))
	for _, v := range versions {
		if v == nil {
			continue
		}
		d := AttributedDate(*v, loc)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
