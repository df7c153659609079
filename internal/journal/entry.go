package journal

import (
	"fmt"
	"strings"
	"time"

	"example.com/babylog/internal/domain"
)

// Entry is the caller-supplied part of an activity.
type Entry struct {
	Kind      domain.Kind
	StartTime time.Time
	EndTime   *time.Time
	Payload   domain.Payload
	Note      string
}

// normalize validates e and applies the entry rules: an end before the start means the
// next day, an end equal to the start is rejected, and only sleep keeps an end.
func normalize(e Entry) (Entry, error) {
	kind, err := domain.ParseKind(string(e.Kind))
	if err != nil {
		return Entry{}, err
	}
	e.Kind = kind
	if e.StartTime.IsZero() {
		return Entry{}, fmt.Errorf("%w: start time is required", domain.ErrInvalidActivity)
	}

	if kind != domain.KindSleep {
		e.EndTime = nil
	} else if e.EndTime != nil {
		end := *e.EndTime
		if end.Before(e.StartTime) {
			end = end.Add(24 * time.Hour)
		}
		if !end.After(e.StartTime) {
			return Entry{}, fmt.Errorf("%w: sleep must end after it starts", domain.ErrInvalidActivity)
		}
		e.EndTime = &end
	}

	switch p := e.Payload.(type) {
	case nil:
		e.Payload = zeroPayload(kind)
	case domain.Feeding:
		if p.VolumeMl < 0 {
			return Entry{}, fmt.Errorf("%w: negative volume %d", domain.ErrInvalidActivity, p.VolumeMl)
		}
	}
	if e.Payload.Kind() != kind {
		return Entry{}, fmt.Errorf("%w: %s payload on %s record", domain.ErrInvalidActivity, e.Payload.Kind(), kind)
	}
	e.Note = strings.TrimSpace(e.Note)
	return e, nil
}

func zeroPayload(kind domain.Kind) domain.Payload {
	switch kind {
	case domain.KindFeeding:
		return domain.Feeding{}
	case domain.KindSleep:
		return domain.Sleep{}
	case domain.KindSolidFood:
		return domain.SolidFood{}
	case domain.KindDiaper:
		return domain.Diaper{}
	default:
		return domain.Other{}
	}
}
