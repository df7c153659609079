package daily

import (
	"sort"
	"time"

	"example.com/babylog/internal/domain"
)

// SortInstant is the position of a record on the window's timeline. A sleep that began before
// the window opened is pinned to the window start so it leads the day it woke up on.
func SortInstant(a domain.Activity, w Window) time.Time {
	if a.Kind == domain.KindSleep && a.StartTime.Before(w.Start) {
		return w.Start
	}
	return a.StartTime
}

// Sort orders a day's records ascending by SortInstant, then by RecordedAt, then by ID.
// The input slice is left untouched.
func Sort(activities []domain.Activity, w Window) []domain.Activity {
	out := make([]domain.Activity, len(activities))
	copy(out, activities)

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j], w)
	})
	return out
}

func less(a, b domain.Activity, w Window) bool {
	ai, bi := SortInstant(a, w), SortInstant(b, w)
	if !ai.Equal(bi) {
		return ai.Before(bi)
	}
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.Before(b.RecordedAt)
	}
	return a.ID < b.ID
}
