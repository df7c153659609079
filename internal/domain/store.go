// Package domain defines the journal records and the contract of the store that holds them.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable wraps any failure of a store query or write.
	ErrStoreUnavailable = errors.New("activity store unavailable")
	// ErrInvalidWindow is returned when a date cannot be resolved to a calendar day.
	ErrInvalidWindow = errors.New("invalid day window")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrInvalidActivity is returned for records that fail validation before they reach the store.
	ErrInvalidActivity = errors.New("invalid activity")
)

// ActivityStore captures persistence operations.
//
// ListOverlapping must return every activity of the subject with StartTime <= end and
// (EndTime absent or EndTime >= start). It knows nothing about day attribution.
type ActivityStore interface {
	ListOverlapping(ctx context.Context, subject Subject, start, end time.Time) ([]Activity, error)
	Get(ctx context.Context, subject Subject, activityID string) (*Activity, error)
	Create(ctx context.Context, activity Activity) error
	// Update replaces the stored record and returns the version it replaced.
	Update(ctx context.Context, activity Activity) (*Activity, error)
	// Delete removes the record and returns it.
	Delete(ctx context.Context, subject Subject, activityID string) (*Activity, error)
}
