// Package memory provides an in-process ActivityStore for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/babylog/internal/domain"
)

// Store keeps activities in memory, keyed by tenant and activity ID.
type Store struct {
	mu         sync.RWMutex
	activities map[string]domain.Activity
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{activities: make(map[string]domain.Activity)}
}

func storeKey(tenantID, activityID string) string {
	return tenantID + "/" + activityID
}

// ListOverlapping implements domain.ActivityStore.
func (s *Store) ListOverlapping(ctx context.Context, subject domain.Subject, start, end time.Time) ([]domain.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Activity, 0)
	for _, a := range s.activities {
		if a.TenantID != subject.TenantID || a.SubjectID != subject.ID {
			continue
		}
		if a.StartTime.After(end) {
			continue
		}
		if a.EndTime != nil && a.EndTime.Before(start) {
			continue
		}
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get implements domain.ActivityStore. A missing record yields (nil, nil).
func (s *Store) Get(ctx context.Context, subject domain.Subject, activityID string) (*domain.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[storeKey(subject.TenantID, activityID)]
	if !ok || a.SubjectID != subject.ID {
		return nil, nil
	}
	out := a.Clone()
	return &out, nil
}

// Create implements domain.ActivityStore.
func (s *Store) Create(ctx context.Context, activity domain.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(activity.ID) == "" {
		activity.ID = uuid.NewString()
	}
	if activity.RecordedAt.IsZero() {
		activity.RecordedAt = time.Now().UTC()
	}
	if activity.UpdatedAt.IsZero() {
		activity.UpdatedAt = activity.RecordedAt
	}
	s.activities[storeKey(activity.TenantID, activity.ID)] = activity.Clone()
	return nil
}

// Update implements domain.ActivityStore.
func (s *Store) Update(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(activity.TenantID, activity.ID)
	previous, ok := s.activities[k]
	if !ok || previous.SubjectID != activity.SubjectID {
		return nil, domain.ErrActivityNotFound
	}
	activity.RecordedAt = previous.RecordedAt
	if activity.UpdatedAt.IsZero() {
		activity.UpdatedAt = time.Now().UTC()
	}
	s.activities[k] = activity.Clone()
	return &previous, nil
}

// Delete implements domain.ActivityStore.
func (s *Store) Delete(ctx context.Context, subject domain.Subject, activityID string) (*domain.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(subject.TenantID, activityID)
	removed, ok := s.activities[k]
	if !ok || removed.SubjectID != subject.ID {
		return nil, domain.ErrActivityNotFound
	}
	delete(s.activities, k)
	return &removed, nil
}
