package daily

import (
	"time"

	"example.com/babylog/internal/domain"
)

// Summary holds the totals shown for one day.
type Summary struct {
	TotalVolumeMl     int
	TotalSleepMinutes int
	Feedings          int
	Sleeps            int
	SolidFoods        int
	Diapers           int
	Others            int
	OngoingSleep      bool
}

// Summarize reduces a day's records to totals. Feedings count by start time. Sleep counts
// only once completed and only on the day it ended, with its full duration; there is no
// clipping at midnight. Records not attributed to w contribute nothing.
func Summarize(activities []domain.Activity, w Window) Summary {
	var (
		s     Summary
		slept time.Duration
	)
	for _, a := range activities {
		switch a.Kind {
		case domain.KindFeeding:
			if !w.Contains(a.StartTime) {
				continue
			}
			s.Feedings++
			if v := a.FeedingVolume(); v > 0 {
				s.TotalVolumeMl += v
			}
		case domain.KindSleep:
			if a.EndTime == nil {
				if w.Contains(a.StartTime) {
					s.Sleeps++
					s.OngoingSleep = true
				}
				continue
			}
			if !w.Contains(*a.EndTime) {
				continue
			}
			s.Sleeps++
			slept += a.Duration()
		default:
			if !w.Contains(a.StartTime) {
				continue
			}
			switch a.Kind {
			case domain.KindSolidFood:
				s.SolidFoods++
			case domain.KindDiaper:
				s.Diapers++
			default:
				s.Others++
			}
		}
	}
	s.TotalSleepMinutes = int(slept / time.Minute)
	return s
}
