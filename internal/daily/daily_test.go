package daily

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/babylog/internal/domain"
)

var shanghai = time.FixedZone("CST", 8*60*60)

var subject = domain.Subject{TenantID: "household-1", ID: "baby-1"}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, shanghai)
}

func ptr(t time.Time) *time.Time { return &t }

func mustDate(t *testing.T, value string) Date {
	t.Helper()
	d, err := ParseDate(value)
	require.NoError(t, err)
	return d
}

func feeding(id string, start time.Time, volume int) domain.Activity {
	return domain.Activity{
		ID:         id,
		TenantID:   subject.TenantID,
		SubjectID:  subject.ID,
		Kind:       domain.KindFeeding,
		StartTime:  start,
		Payload:    domain.Feeding{VolumeMl: volume},
		RecordedAt: start,
	}
}

func sleep(id string, start time.Time, end *time.Time) domain.Activity {
	return domain.Activity{
		ID:         id,
		TenantID:   subject.TenantID,
		SubjectID:  subject.ID,
		Kind:       domain.KindSleep,
		StartTime:  start,
		EndTime:    end,
		Payload:    domain.Sleep{},
		RecordedAt: start,
	}
}

type stubStore struct {
	records []domain.Activity
	err     error
	calls   int
	start   time.Time
	end     time.Time
}

func (s *stubStore) ListOverlapping(_ context.Context, _ domain.Subject, start, end time.Time) ([]domain.Activity, error) {
	s.calls++
	s.start, s.end = start, end
	if s.err != nil {
		return nil, s.err
	}
	w := Window{Start: start, End: end}
	out := make([]domain.Activity, 0, len(s.records))
	for _, a := range s.records {
		if Overlaps(a, w) {
			out = append(out, a)
		}
	}
	return out, nil
}

func ids(activities []domain.Activity) []string {
	out := make([]string, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ID)
	}
	return out
}

func TestDateWindowBounds(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)

	require.Equal(t, at(10, 0, 0), w.Start)
	require.Equal(t, time.Date(2025, time.March, 10, 23, 59, 59, int(999*time.Millisecond), shanghai), w.End)
	require.True(t, w.Contains(w.Start))
	require.True(t, w.Contains(w.End))
	require.False(t, w.Contains(w.End.Add(time.Millisecond)))
	require.Equal(t, "2025-03-10", w.Date().String())
}

func TestWindowAtUsesSameKeyForAnyInstantOfTheDay(t *testing.T) {
	morning := WindowAt(at(10, 0, 1), shanghai)
	night := WindowAt(at(10, 23, 59), shanghai)
	require.Equal(t, morning, night)
}

func TestParseDateRejectsMalformedInput(t *testing.T) {
	for _, value := range []string{"", "2025-3-10", "yesterday", "2025-02-30", "2025-13-01"} {
		_, err := ParseDate(value)
		require.Truef(t, errors.Is(err, domain.ErrInvalidWindow), "value %q: %v", value, err)
	}

	_, err := NewDate(2024, time.February, 30)
	require.ErrorIs(t, err, domain.ErrInvalidWindow)

	d, err := NewDate(2024, time.February, 29)
	require.NoError(t, err)
	require.Equal(t, "2024-03-01", d.AddDays(1).String())
}

func TestAttributionPolicy(t *testing.T) {
	d9 := mustDate(t, "2025-03-09").Window(shanghai)
	d10 := mustDate(t, "2025-03-10").Window(shanghai)

	overnight := sleep("s1", at(9, 23, 0), ptr(at(10, 7, 0)))
	require.True(t, Belongs(overnight, d10))
	require.False(t, Belongs(overnight, d9))
	require.True(t, Overlaps(overnight, d9), "coarse overlap still selects the start day")

	ongoing := sleep("s2", at(9, 21, 0), nil)
	require.True(t, Belongs(ongoing, d9))
	require.False(t, Belongs(ongoing, d10))
	require.True(t, Overlaps(ongoing, d10))

	late := feeding("f1", d10.End, 60)
	require.True(t, Belongs(late, d10), "window end is inclusive")
	require.Equal(t, "2025-03-10", AttributedDate(late, shanghai).String())
}

func TestFetchAttributesOvernightSleepToWakingDay(t *testing.T) {
	store := &stubStore{records: []domain.Activity{
		sleep("overnight", at(9, 23, 0), ptr(at(10, 7, 0))),
		feeding("evening-feed", at(9, 20, 0), 120),
		feeding("morning-feed", at(10, 8, 0), 90),
	}}
	fetcher := NewFetcher(store, shanghai)

	day10, err := fetcher.Fetch(context.Background(), subject, mustDate(t, "2025-03-10"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"overnight", "morning-feed"}, ids(day10))

	day9, err := fetcher.Fetch(context.Background(), subject, mustDate(t, "2025-03-09"))
	require.NoError(t, err)
	require.Equal(t, []string{"evening-feed"}, ids(day9))

	require.Equal(t, at(9, 0, 0), store.start)
}

func TestFetchKeepsInProgressSleepOnStartDayOnly(t *testing.T) {
	store := &stubStore{records: []domain.Activity{sleep("nap", at(10, 13, 0), nil)}}
	fetcher := NewFetcher(store, shanghai)

	day10, err := fetcher.Fetch(context.Background(), subject, mustDate(t, "2025-03-10"))
	require.NoError(t, err)
	require.Equal(t, []string{"nap"}, ids(day10))

	day11, err := fetcher.Fetch(context.Background(), subject, mustDate(t, "2025-03-11"))
	require.NoError(t, err)
	require.Empty(t, day11)

	summary := Summarize(day10, mustDate(t, "2025-03-10").Window(shanghai))
	require.Zero(t, summary.TotalSleepMinutes)
	require.True(t, summary.OngoingSleep)
}

func TestFetchDropsOtherSubjects(t *testing.T) {
	foreign := feeding("foreign", at(10, 9, 0), 100)
	foreign.SubjectID = "baby-2"
	store := &stubStore{records: []domain.Activity{foreign}}

	got, err := NewFetcher(store, shanghai).Fetch(context.Background(), subject, mustDate(t, "2025-03-10"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFetchPropagatesStoreFailure(t *testing.T) {
	cause := errors.New("connection refused")
	store := &stubStore{err: cause}

	got, err := NewFetcher(store, shanghai).Fetch(context.Background(), subject, mustDate(t, "2025-03-10"))
	require.Nil(t, got)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.ErrorIs(t, err, cause)
}

func TestSortPinsOvernightSleepFirst(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)
	records := []domain.Activity{
		feeding("feed-0630", at(10, 6, 30), 90),
		sleep("overnight", at(9, 23, 0), ptr(at(10, 7, 0))),
		feeding("feed-0010", at(10, 0, 10), 60),
	}

	sorted := Sort(records, w)
	require.Equal(t, []string{"overnight", "feed-0010", "feed-0630"}, ids(sorted))
	require.Equal(t, "feed-0630", records[0].ID, "input must not be reordered")
}

func TestSortBreaksTiesByRecordedAt(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)
	first := feeding("b", at(10, 9, 0), 60)
	first.RecordedAt = at(10, 9, 1)
	second := feeding("a", at(10, 9, 0), 60)
	second.RecordedAt = at(10, 9, 5)

	for i := 0; i < 5; i++ {
		require.Equal(t, []string{"b", "a"}, ids(Sort([]domain.Activity{second, first}, w)))
		require.Equal(t, []string{"b", "a"}, ids(Sort([]domain.Activity{first, second}, w)))
	}
}

func TestSortIsIdempotent(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)
	records := []domain.Activity{
		feeding("f3", at(10, 18, 0), 100),
		sleep("s1", at(9, 22, 0), ptr(at(10, 6, 0))),
		feeding("f1", at(10, 9, 0), 100),
		sleep("s2", at(10, 13, 0), ptr(at(10, 14, 30))),
	}
	once := Sort(records, w)
	require.Equal(t, once, Sort(once, w))
}

func TestGroupBuckets(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)
	overnight := sleep("overnight", at(9, 23, 0), ptr(at(10, 13, 0)))
	records := Sort([]domain.Activity{
		overnight,
		feeding("f-1159", at(10, 11, 59), 90),
		feeding("f-1200", at(10, 12, 0), 90),
		feeding("f-1759", at(10, 17, 59), 90),
		feeding("f-1800", at(10, 18, 0), 90),
		feeding("f-2350", at(10, 23, 50), 90),
	}, w)

	p := Group(records, w)
	require.Equal(t, []string{"overnight", "f-1159"}, ids(p.Morning), "overnight sleep stays in the morning even when it ends after noon")
	require.Equal(t, []string{"f-1200", "f-1759"}, ids(p.Afternoon))
	require.Equal(t, []string{"f-1800", "f-2350"}, ids(p.Evening))
	require.Equal(t, len(records), p.Len())
	require.Equal(t, at(10, 13, 0), DisplayTime(overnight, w))
}

func TestGroupPartitionIsDisjointAndComplete(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)
	records := []domain.Activity{
		sleep("s1", at(9, 21, 0), ptr(at(10, 5, 0))),
		sleep("s2", at(10, 19, 0), nil),
		feeding("f1", at(10, 3, 0), 80),
		feeding("f2", at(10, 15, 0), 80),
	}

	p := Group(records, w)
	seen := map[string]int{}
	for _, bucket := range [][]domain.Activity{p.Morning, p.Afternoon, p.Evening} {
		for _, a := range bucket {
			seen[a.ID]++
		}
	}
	require.Len(t, seen, len(records))
	for id, n := range seen {
		require.Equalf(t, 1, n, "%s appears in %d buckets", id, n)
	}

	empty := Group(nil, w)
	require.Zero(t, empty.Len())
}

func TestSummarizeOvernightScenario(t *testing.T) {
	store := &stubStore{records: []domain.Activity{
		sleep("overnight", at(9, 23, 0), ptr(at(10, 7, 0))),
		feeding("late", at(10, 23, 50), 90),
	}}
	fetcher := NewFetcher(store, shanghai)
	date := mustDate(t, "2025-03-10")
	w := date.Window(shanghai)

	day, err := fetcher.Fetch(context.Background(), subject, date)
	require.NoError(t, err)

	summary := Summarize(day, w)
	require.Equal(t, 480, summary.TotalSleepMinutes)
	require.Equal(t, 90, summary.TotalVolumeMl)
	require.Equal(t, 1, summary.Sleeps)
	require.Equal(t, 1, summary.Feedings)

	p := Group(Sort(day, w), w)
	require.Equal(t, []string{"overnight"}, ids(p.Morning))
	require.Equal(t, []string{"late"}, ids(p.Evening))

	previous, err := fetcher.Fetch(context.Background(), subject, date.AddDays(-1))
	require.NoError(t, err)
	require.Empty(t, previous)
}

func TestSummarizeSingleFeeding(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)
	summary := Summarize([]domain.Activity{feeding("f", at(10, 10, 0), 120)}, w)
	require.Equal(t, 120, summary.TotalVolumeMl)
	require.Zero(t, summary.TotalSleepMinutes)
}

func TestSummarizeIgnoresRecordsOutsideTheDay(t *testing.T) {
	w := mustDate(t, "2025-03-10").Window(shanghai)
	diaper := domain.Activity{ID: "d", Kind: domain.KindDiaper, StartTime: at(10, 8, 0), Payload: domain.Diaper{Color: "yellow"}}
	summary := Summarize([]domain.Activity{
		feeding("yesterday", at(9, 22, 0), 150),
		sleep("tomorrow", at(10, 22, 0), ptr(at(11, 6, 0))),
		diaper,
	}, w)
	require.Zero(t, summary.TotalVolumeMl)
	require.Zero(t, summary.TotalSleepMinutes)
	require.Equal(t, 1, summary.Diapers)
}

func TestAffectedDatesDeduplicates(t *testing.T) {
	before := sleep("s", at(9, 22, 0), ptr(at(9, 23, 30)))
	after := sleep("s", at(9, 22, 0), ptr(at(10, 6, 0)))
	same := sleep("s", at(9, 20, 0), ptr(at(9, 23, 0)))

	require.Equal(t, []Date{mustDate(t, "2025-03-09"), mustDate(t, "2025-03-10")}, AffectedDates(shanghai, &before, &after))
	require.Equal(t, []Date{mustDate(t, "2025-03-09")}, AffectedDates(shanghai, &before, &same, nil))
}
