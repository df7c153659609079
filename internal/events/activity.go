// Package events defines the change events emitted for journal writes.
package events

import (
	"time"

	"example.com/babylog/internal/domain"
)

// Event types published through the outbox.
const (
	TypeActivityRecorded = "activity.recorded"
	TypeActivityRevised  = "activity.revised"
	TypeActivityRemoved  = "activity.removed"
)

// Span is the part of an activity that decides its attributed day.
type Span struct {
	Kind      string     `json:"kind"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// ActivityChanged is emitted for every create, update and delete. Previous is absent on create,
// Current is absent on delete.
type ActivityChanged struct {
	ActivityID string    `json:"activity_id"`
	TenantID   string    `json:"tenant_id"`
	SubjectID  string    `json:"subject_id"`
	Previous   *Span     `json:"previous,omitempty"`
	Current    *Span     `json:"current,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SpanOf extracts the span of a record; nil in, nil out.
func SpanOf(a *domain.Activity) *Span {
	if a == nil {
		return nil
	}
	span := &Span{Kind: string(a.Kind), StartTime: a.StartTime}
	if a.EndTime != nil {
		end := *a.EndTime
		span.EndTime = &end
	}
	return span
}

// Activity rebuilds the minimal record needed for attribution.
func (s *Span) Activity() *domain.Activity {
	if s == nil {
		return nil
	}
	return &domain.Activity{Kind: domain.Kind(s.Kind), StartTime: s.StartTime, EndTime: s.EndTime}
}

// Subject returns the ownership scope carried by the event.
func (e ActivityChanged) Subject() domain.Subject {
	return domain.Subject{TenantID: e.TenantID, ID: e.SubjectID}
}
