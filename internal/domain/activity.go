package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the care events a journal can hold.
type Kind string

const (
	KindFeeding   Kind = "feeding"
	KindSleep     Kind = "sleep"
	KindSolidFood Kind = "solid_food"
	KindDiaper    Kind = "diaper"
	KindOther     Kind = "other"
)

var kinds = map[Kind]struct{}{
	KindFeeding:   {},
	KindSleep:     {},
	KindSolidFood: {},
	KindDiaper:    {},
	KindOther:     {},
}

// ParseKind validates a wire value. The legacy "solidFood" spelling is accepted.
func ParseKind(value string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "solidfood" {
		normalized = string(KindSolidFood)
	}
	k := Kind(normalized)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidActivity, value)
	}
	return k, nil
}

// Subject identifies the child whose journal is being read or written, scoped to its household.
type Subject struct {
	TenantID string
	ID       string
}

// Activity is a single journal record as supplied by the store.
type Activity struct {
	ID         string
	TenantID   string
	SubjectID  string
	Kind       Kind
	StartTime  time.Time
	EndTime    *time.Time
	Payload    Payload
	Note       string
	RecordedAt time.Time
	UpdatedAt  time.Time
}

// Subject returns the ownership scope of the record.
func (a Activity) Subject() Subject {
	return Subject{TenantID: a.TenantID, ID: a.SubjectID}
}

// InProgress reports whether the activity is a sleep session that has not ended yet.
func (a Activity) InProgress() bool {
	return a.Kind == KindSleep && a.EndTime == nil
}

// Duration is zero for point events and for sleep still in progress.
func (a Activity) Duration() time.Duration {
	if a.Kind != KindSleep || a.EndTime == nil {
		return 0
	}
	if d := a.EndTime.Sub(a.StartTime); d > 0 {
		return d
	}
	return 0
}

// FeedingVolume returns the recorded milk volume, or zero for anything that is not a feeding.
func (a Activity) FeedingVolume() int {
	if f, ok := a.Payload.(Feeding); ok && a.Kind == KindFeeding {
		return f.VolumeMl
	}
	return 0
}

// Clone returns a copy that shares no mutable state with a.
func (a Activity) Clone() Activity {
	out := a
	if a.EndTime != nil {
		end := *a.EndTime
		out.EndTime = &end
	}
	if s, ok := a.Payload.(SolidFood); ok {
		s.Items = append([]string(nil), s.Items...)
		out.Payload = s
	}
	return out
}

// CloneAll copies a record set.
func CloneAll(in []Activity) []Activity {
	if in == nil {
		return nil
	}
	out := make([]Activity, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
