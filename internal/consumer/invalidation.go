package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/babylog/internal/cache"
	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/events"
	"example.com/babylog/internal/observability"
)

// InvalidationHandler drops cached days touched by a change event.
type InvalidationHandler struct {
	invalidator cache.Invalidator
	loc         *time.Location
}

// NewInvalidationHandler builds a handler that computes affected days in loc.
func NewInvalidationHandler(invalidator cache.Invalidator, loc *time.Location) *InvalidationHandler {
	if invalidator == nil {
		invalidator = cache.NoopInvalidator{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &InvalidationHandler{invalidator: invalidator, loc: loc}
}

// Handle implements Handler.
func (h *InvalidationHandler) Handle(_ context.Context, msg Message) error {
	var event events.ActivityChanged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode %s: %w", msg.EventType, err)
	}
	if event.TenantID == "" || event.SubjectID == "" {
		return fmt.Errorf("%s for activity %q has no owner", msg.EventType, event.ActivityID)
	}
	subject := event.Subject()

	dates := daily.AffectedDates(h.loc, event.Previous.Activity(), event.Current.Activity())
	if len(dates) == 0 {
		h.invalidator.InvalidateAll(subject)
		recordInvalidated(msg, 0)
	} else {
		for _, d := range dates {
			h.invalidator.Invalidate(subject, d)
		}
		recordInvalidated(msg, len(dates))
	}
	observability.RecordInvalidationApplied(event.OccurredAt)
	return nil
}
