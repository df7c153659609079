package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
)

var zone = time.FixedZone("UTC+8", 8*60*60)

var baby = domain.Subject{TenantID: "household-1", ID: "baby-1"}

type countingFetcher struct {
	calls   atomic.Int32
	err     error
	gate    chan struct{}
	started chan struct{}
	volume  atomic.Int32
}

func (f *countingFetcher) Fetch(ctx context.Context, subject domain.Subject, date daily.Date) ([]domain.Activity, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	start := date.Window(zone).Start.Add(9 * time.Hour)
	return []domain.Activity{{
		ID:        "feed-" + date.String(),
		TenantID:  subject.TenantID,
		SubjectID: subject.ID,
		Kind:      domain.KindFeeding,
		StartTime: start,
		Payload:   domain.Feeding{VolumeMl: int(f.volume.Load())},
	}}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func date(t *testing.T, value string) daily.Date {
	t.Helper()
	d, err := daily.ParseDate(value)
	require.NoError(t, err)
	return d
}

func newCache(f DayFetcher, clock *fakeClock) *DayCache {
	return NewDayCache(f, WithLocation(zone), WithClock(clock.Now))
}

func TestGetOrFetchServesFromCacheUntilTTL(t *testing.T) {
	fetcher := &countingFetcher{}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	hitsBefore := testutil.ToFloat64(hitCounter)

	_, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	_, err = c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetcher.calls.Load())
	require.InDelta(t, hitsBefore+1, testutil.ToFloat64(hitCounter), 0.0001)

	clock.Advance(DefaultTTL - time.Second)
	_, err = c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetcher.calls.Load())

	clock.Advance(time.Second)
	_, err = c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, fetcher.calls.Load(), "expired entry must be recomputed")
}

func TestCustomTTL(t *testing.T) {
	fetcher := &countingFetcher{}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	_, err := c.GetOrFetch(context.Background(), baby, day, 10*time.Second)
	require.NoError(t, err)
	clock.Advance(11 * time.Second)
	_, err = c.GetOrFetch(context.Background(), baby, day, 10*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 2, fetcher.calls.Load())
}

func TestInvalidateForcesStoreRoundTrip(t *testing.T) {
	fetcher := &countingFetcher{}
	fetcher.volume.Store(90)
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	first, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.Equal(t, 90, first[0].FeedingVolume())

	fetcher.volume.Store(120)
	c.Invalidate(baby, day)

	second, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, fetcher.calls.Load())
	require.Equal(t, 120, second[0].FeedingVolume())
}

func TestInvalidateLeavesOtherDaysAndSubjects(t *testing.T) {
	fetcher := &countingFetcher{}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	other := domain.Subject{TenantID: "household-1", ID: "baby-2"}
	d10, d11 := date(t, "2025-03-10"), date(t, "2025-03-11")

	for _, s := range []domain.Subject{baby, other} {
		for _, d := range []daily.Date{d10, d11} {
			_, err := c.GetOrFetch(context.Background(), s, d, 0)
			require.NoError(t, err)
		}
	}
	require.Equal(t, 4, c.Len())

	c.Invalidate(baby, d10)
	require.Equal(t, 3, c.Len())

	c.InvalidateAll(other)
	require.Equal(t, 1, c.Len())

	_, err := c.GetOrFetch(context.Background(), baby, d11, 0)
	require.NoError(t, err)
	require.EqualValues(t, 4, fetcher.calls.Load(), "untouched entry must still be served from cache")
}

func TestSameDayProducesSameKey(t *testing.T) {
	fetcher := &countingFetcher{}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)

	early := daily.DateOf(time.Date(2025, time.March, 10, 0, 0, 1, 0, zone), zone)
	late := daily.DateOf(time.Date(2025, time.March, 10, 23, 59, 59, 0, zone), zone)

	_, err := c.GetOrFetch(context.Background(), baby, early, 0)
	require.NoError(t, err)
	_, err = c.GetOrFetch(context.Background(), baby, late, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetcher.calls.Load())
}

func TestReturnedSliceDoesNotAliasEntry(t *testing.T) {
	fetcher := &countingFetcher{}
	fetcher.volume.Store(60)
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	got, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	got[0].Payload = domain.Feeding{VolumeMl: 999}
	got[0].ID = "mutated"

	again, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.Equal(t, "feed-2025-03-10", again[0].ID)
	require.Equal(t, 60, again[0].FeedingVolume())
}

func TestFetchErrorIsNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: domain.ErrStoreUnavailable}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	_, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.Zero(t, c.Len())

	fetcher.err = nil
	_, err = c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, fetcher.calls.Load())
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	fetcher := &countingFetcher{gate: make(chan struct{}), started: make(chan struct{}, 8)}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrFetch(context.Background(), baby, day, 0)
			errs <- err
		}()
	}

	<-fetcher.started
	// give the remaining callers a chance to join the in-flight load
	time.Sleep(50 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, fetcher.calls.Load())
}

func TestInvalidationDuringLoadDiscardsResult(t *testing.T) {
	fetcher := &countingFetcher{gate: make(chan struct{}), started: make(chan struct{}, 2)}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(context.Background(), baby, day, 0)
		done <- err
	}()

	<-fetcher.started
	c.Invalidate(baby, day)
	close(fetcher.gate)
	require.NoError(t, <-done)
	require.Zero(t, c.Len(), "a load that raced an invalidation must not be stored")

	_, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, fetcher.calls.Load())
	require.Equal(t, 1, c.Len())
}

func TestAbandonedCallStillWarmsCache(t *testing.T) {
	fetcher := &countingFetcher{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)
	day := date(t, "2025-03-10")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, baby, day, 0)
		done <- err
	}()

	<-fetcher.started
	cancel()
	require.True(t, errors.Is(<-done, context.Canceled))

	close(fetcher.gate)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)

	_, err := c.GetOrFetch(context.Background(), baby, day, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetcher.calls.Load())
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	fetcher := &countingFetcher{}
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 12, 0, 0, 0, zone)}
	c := newCache(fetcher, clock)

	_, err := c.GetOrFetch(context.Background(), baby, date(t, "2025-03-09"), time.Minute)
	require.NoError(t, err)
	_, err = c.GetOrFetch(context.Background(), baby, date(t, "2025-03-10"), time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, c.Sweep())
	require.Equal(t, 1, c.Len())
}

func TestNoopInvalidatorSatisfiesContract(t *testing.T) {
	var inv Invalidator = NoopInvalidator{}
	inv.Invalidate(baby, date(t, "2025-03-10"))
	inv.InvalidateAll(baby)

	inv = NewDayCache(&countingFetcher{})
	inv.InvalidateAll(baby)
}
