package daily

import (
	"context"
	"fmt"
	"time"

	"example.com/babylog/internal/domain"
)

// OverlapQuerier is the part of the store the fetcher depends on.
type OverlapQuerier interface {
	ListOverlapping(ctx context.Context, subject domain.Subject, start, end time.Time) ([]domain.Activity, error)
}

// Fetcher loads the records attributed to one day of one subject.
type Fetcher struct {
	store OverlapQuerier
	loc   *time.Location
}

// NewFetcher constructs a Fetcher resolving days in loc (process local time when nil).
func NewFetcher(store OverlapQuerier, loc *time.Location) *Fetcher {
	return &Fetcher{store: store, loc: locationOrLocal(loc)}
}

// Location is the zone days are resolved in.
func (f *Fetcher) Location() *time.Location {
	return f.loc
}

// Fetch queries the store with the coarse overlap predicate and keeps only the records whose
// precise attribution is the requested day. The result is unsorted. Store failures are
// returned wrapped in domain.ErrStoreUnavailable; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, subject domain.Subject, date Date) ([]domain.Activity, error) {
	window := date.Window(f.loc)

	start := time.Now()
	candidates, err := f.store.ListOverlapping(ctx, subject, window.Start, window.End)
	observeFetch(start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s for subject %s: %w", domain.ErrStoreUnavailable, date, subject.ID, err)
	}

	out := make([]domain.Activity, 0, len(candidates))
	for _, a := range candidates {
		if a.SubjectID != subject.ID {
			continue
		}
		if !Belongs(a, window) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
