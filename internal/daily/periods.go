package daily

import (
	"time"

	"example.com/babylog/internal/domain"
)

// Period names a display bucket of the day.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// Periods partitions a day's records. Empty buckets are valid.
type Periods struct {
	Morning   []domain.Activity
	Afternoon []domain.Activity
	Evening   []domain.Activity
}

// Len is the total number of records across buckets.
func (p Periods) Len() int {
	return len(p.Morning) + len(p.Afternoon) + len(p.Evening)
}

// DisplayTime is the instant whose hour places the record in a bucket.
func DisplayTime(a domain.Activity, w Window) time.Time {
	if Overnight(a, w.Location()) && w.Contains(*a.EndTime) {
		return *a.EndTime
	}
	return a.StartTime
}

// PeriodOf returns the bucket for a record displayed in w. Overnight sleep is always morning.
func PeriodOf(a domain.Activity, w Window) Period {
	if Overnight(a, w.Location()) {
		return PeriodMorning
	}
	switch hour := DisplayTime(a, w).In(w.Location()).Hour(); {
	case hour < 12:
		return PeriodMorning
	case hour < 18:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

// Group buckets records into morning [0,12), afternoon [12,18) and evening [18,24),
// keeping input order inside each bucket.
func Group(activities []domain.Activity, w Window) Periods {
	var p Periods
	for _, a := range activities {
		switch PeriodOf(a, w) {
		case PeriodMorning:
			p.Morning = append(p.Morning, a)
		case PeriodAfternoon:
			p.Afternoon = append(p.Afternoon, a)
		default:
			p.Evening = append(p.Evening, a)
		}
	}
	return p
}
