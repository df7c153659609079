// Package journal records activities and assembles day views on top of the day cache.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/babylog/internal/cache"
	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
	"example.com/babylog/internal/logger"
)

// Service coordinates writes with cache invalidation and serves day views.
type Service struct {
	store        domain.ActivityStore
	days         *cache.DayCache
	invalidators []cache.Invalidator
	loc          *time.Location
	ttl          time.Duration
	now          func() time.Time
	newID        func() string
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for RecordedAt, UpdatedAt and "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTTL sets the lifetime of cached days. Zero keeps cache.DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithInvalidator adds a listener notified after the local cache on every write.
func WithInvalidator(inv cache.Invalidator) Option {
	return func(s *Service) {
		if inv != nil {
			s.invalidators = append(s.invalidators, inv)
		}
	}
}

// WithIDGenerator overrides how new activity IDs are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// NewService wires a Service. days must be built over a fetcher reading from store in loc.
func NewService(store domain.ActivityStore, days *cache.DayCache, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		store:        store,
		days:         days,
		invalidators: []cache.Invalidator{days},
		loc:          loc,
		ttl:          cache.DefaultTTL,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone days are resolved in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Today is the current calendar date in the service zone.
func (s *Service) Today() daily.Date {
	return daily.DateOf(s.now(), s.loc)
}

// CreateActivity records a new activity for subject.
func (s *Service) CreateActivity(ctx context.Context, subject domain.Subject, e Entry) (*domain.Activity, error) {
	e, err := normalize(e)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	activity := domain.Activity{
		ID:         s.newID(),
		TenantID:   subject.TenantID,
		SubjectID:  subject.ID,
		Kind:       e.Kind,
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		Payload:    e.Payload,
		Note:       e.Note,
		RecordedAt: now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, activity); err != nil {
		return nil, storeError("create", activity.ID, err)
	}

	s.invalidate(ctx, subject, nil, &activity)
	logger.C(ctx).Debug().Str("activity_id", activity.ID).Str("kind", string(activity.Kind)).Msg("activity recorded")
	return &activity, nil
}

// UpdateActivity replaces the entry fields of an existing activity. Both the day the old
// version was attributed to and the day of the new version are invalidated.
func (s *Service) UpdateActivity(ctx context.Context, subject domain.Subject, activityID string, e Entry) (*domain.Activity, error) {
	e, err := normalize(e)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, subject, activityID)
	if err != nil {
		return nil, storeError("get", activityID, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrActivityNotFound, activityID)
	}

	updated := *existing
	updated.Kind = e.Kind
	updated.StartTime = e.StartTime
	updated.EndTime = e.EndTime
	updated.Payload = e.Payload
	updated.Note = e.Note
	updated.UpdatedAt = s.now().UTC()

	previous, err := s.store.Update(ctx, updated)
	if err != nil {
		return nil, storeError("update", activityID, err)
	}

	s.invalidate(ctx, subject, previous, &updated)
	return &updated, nil
}

// DeleteActivity removes an activity and invalidates the day it was attributed to.
func (s *Service) DeleteActivity(ctx context.Context, subject domain.Subject, activityID string) error {
	removed, err := s.store.Delete(ctx, subject, activityID)
	if err != nil {
		return storeError("delete", activityID, err)
	}
	s.invalidate(ctx, subject, removed, nil)
	return nil
}

// GetActivity returns one activity or domain.ErrActivityNotFound.
func (s *Service) GetActivity(ctx context.Context, subject domain.Subject, activityID string) (*domain.Activity, error) {
	a, err := s.store.Get(ctx, subject, activityID)
	if err != nil {
		return nil, storeError("get", activityID, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrActivityNotFound, activityID)
	}
	return a, nil
}

func (s *Service) invalidate(ctx context.Context, subject domain.Subject, previous, current *domain.Activity) {
	dates := daily.AffectedDates(s.loc, previous, current)
	for _, inv := range s.invalidators {
		for _, d := range dates {
			inv.Invalidate(subject, d)
		}
	}
	if len(dates) == 0 {
		return
	}
	names := make([]string, len(dates))
	for i, d := range dates {
		names[i] = d.String()
	}
	logger.C(ctx).Debug().Str("subject_id", subject.ID).Strs("days", names).Msg("day cache invalidated")
}

func storeError(op, activityID string, err error) error {
	if errors.Is(err, domain.ErrActivityNotFound) || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrStoreUnavailable, op, activityID, err)
}
