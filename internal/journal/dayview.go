package journal

import (
	"context"
	"time"

	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
)

// TimelineItem is one record of a day view with its display placement.
type TimelineItem struct {
	Activity    domain.Activity
	DisplayTime time.Time
	Period      daily.Period
	Ongoing     bool
	Overnight   bool
}

// DayView is everything a client renders for one day.
type DayView struct {
	Date     daily.Date
	Window   daily.Window
	Timeline []TimelineItem
	Periods  daily.Periods
	Summary  daily.Summary
}

// DayView assembles the sorted timeline, period buckets and totals for one day of subject.
func (s *Service) DayView(ctx context.Context, subject domain.Subject, date daily.Date) (*DayView, error) {
	if date.IsZero() {
		return nil, domain.ErrInvalidWindow
	}
	records, err := s.days.GetOrFetch(ctx, subject, date, s.ttl)
	if err != nil {
		return nil, err
	}

	w := date.Window(s.loc)
	sorted := daily.Sort(records, w)

	timeline := make([]TimelineItem, len(sorted))
	for i, a := range sorted {
		timeline[i] = TimelineItem{
			Activity:    a,
			DisplayTime: daily.DisplayTime(a, w),
			Period:      daily.PeriodOf(a, w),
			Ongoing:     a.InProgress(),
			Overnight:   daily.Overnight(a, s.loc),
		}
	}

	return &DayView{
		Date:     date,
		Window:   w,
		Timeline: timeline,
		Periods:  daily.Group(sorted, w),
		Summary:  daily.Summarize(sorted, w),
	}, nil
}
