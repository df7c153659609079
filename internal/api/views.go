package api

import (
	"encoding/json"
	"time"

	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
	"example.com/babylog/internal/journal"
)

// ActivityRequest is the body of POST and PUT on activities.
type ActivityRequest struct {
	Kind      string          `json:"kind" validate:"required"`
	StartTime time.Time       `json:"start_time" validate:"required"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Note      string          `json:"note,omitempty" validate:"max=1000"`
}

func (r ActivityRequest) entry() (journal.Entry, error) {
	kind, err := domain.ParseKind(r.Kind)
	if err != nil {
		return journal.Entry{}, err
	}
	payload, err := domain.DecodePayload(kind, r.Payload)
	if err != nil {
		return journal.Entry{}, err
	}
	return journal.Entry{
		Kind:      kind,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Payload:   payload,
		Note:      r.Note,
	}, nil
}

// ActivityView is the wire form of an activity.
type ActivityView struct {
	ActivityID string          `json:"activity_id"`
	SubjectID  string          `json:"subject_id"`
	Kind       string          `json:"kind"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    *time.Time      `json:"end_time,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Note       string          `json:"note,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TimelineEntry is an activity placed on a day.
type TimelineEntry struct {
	ActivityView
	DisplayTime time.Time `json:"display_time"`
	Period      string    `json:"period"`
	Ongoing     bool      `json:"ongoing"`
	Overnight   bool      `json:"overnight"`
}

// PeriodsView lists activity IDs per display bucket, in timeline order.
type PeriodsView struct {
	Morning   []string `json:"morning"`
	Afternoon []string `json:"afternoon"`
	Evening   []string `json:"evening"`
}

// SummaryView holds a day's totals.
type SummaryView struct {
	TotalVolumeMl     int  `json:"total_volume_ml"`
	TotalSleepMinutes int  `json:"total_sleep_minutes"`
	Feedings          int  `json:"feedings"`
	Sleeps            int  `json:"sleeps"`
	SolidFoods        int  `json:"solid_foods"`
	Diapers           int  `json:"diapers"`
	Others            int  `json:"others"`
	OngoingSleep      bool `json:"ongoing_sleep"`
}

// DayViewResponse is the body of GET .../days/{date}.
type DayViewResponse struct {
	Date        string          `json:"date"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
	Timeline    []TimelineEntry `json:"timeline"`
	Periods     PeriodsView     `json:"periods"`
	Summary     SummaryView     `json:"summary"`
}

func toActivityView(a domain.Activity, loc *time.Location) ActivityView {
	payload, err := domain.EncodePayload(a.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	view := ActivityView{
		ActivityID: a.ID,
		SubjectID:  a.SubjectID,
		Kind:       string(a.Kind),
		StartTime:  a.StartTime.In(loc),
		Payload:    payload,
		Note:       a.Note,
		RecordedAt: a.RecordedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.EndTime != nil {
		end := a.EndTime.In(loc)
		view.EndTime = &end
	}
	return view
}

func ids(acts []domain.Activity) []string {
	out := make([]string, len(acts))
	for i, a := range acts {
		out[i] = a.ID
	}
	return out
}

func toDayViewResponse(v *journal.DayView, loc *time.Location) DayViewResponse {
	timeline := make([]TimelineEntry, len(v.Timeline))
	for i, item := range v.Timeline {
		timeline[i] = TimelineEntry{
			ActivityView: toActivityView(item.Activity, loc),
			DisplayTime:  item.DisplayTime.In(loc),
			Period:       string(item.Period),
			Ongoing:      item.Ongoing,
			Overnight:    item.Overnight,
		}
	}
	return DayViewResponse{
		Date:        v.Date.String(),
		WindowStart: v.Window.Start,
		WindowEnd:   v.Window.End,
		Timeline:    timeline,
		Periods: PeriodsView{
			Morning:   ids(v.Periods.Morning),
			Afternoon: ids(v.Periods.Afternoon),
			Evening:   ids(v.Periods.Evening),
		},
		Summary: toSummaryView(v.Summary),
	}
}

func toSummaryView(s daily.Summary) SummaryView {
	return SummaryView{
		TotalVolumeMl:     s.TotalVolumeMl,
		TotalSleepMinutes: s.TotalSleepMinutes,
		Feedings:          s.Feedings,
		Sleeps:            s.Sleeps,
		SolidFoods:        s.SolidFoods,
		Diapers:           s.Diapers,
		Others:            s.Others,
		OngoingSleep:      s.OngoingSleep,
	}
}
