package cache

import (
	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
)

// Invalidator defines the invalidation contract writers depend on.
type Invalidator interface {
	Invalidate(subject domain.Subject, date daily.Date)
	InvalidateAll(subject domain.Subject)
}

// NoopInvalidator is a no-op implementation.
type NoopInvalidator struct{}

// Invalidate performs no action.
func (NoopInvalidator) Invalidate(domain.Subject, daily.Date) {}

// InvalidateAll performs no action.
func (NoopInvalidator) InvalidateAll(domain.Subject) {}
