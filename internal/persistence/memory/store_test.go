package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/babylog/internal/domain"
)

func TestListOverlappingAppliesCoarsePredicate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	baby := domain.Subject{TenantID: "t1", ID: "baby"}
	dayStart := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Millisecond)

	end := func(t time.Time) *time.Time { return &t }
	records := []domain.Activity{
		{ID: "overnight", Kind: domain.KindSleep, StartTime: dayStart.Add(-time.Hour), EndTime: end(dayStart.Add(6 * time.Hour))},
		{ID: "ongoing", Kind: domain.KindSleep, StartTime: dayStart.Add(-3 * time.Hour)},
		{ID: "yesterday-nap", Kind: domain.KindSleep, StartTime: dayStart.Add(-5 * time.Hour), EndTime: end(dayStart.Add(-4 * time.Hour))},
		{ID: "at-end", Kind: domain.KindFeeding, StartTime: dayEnd, Payload: domain.Feeding{VolumeMl: 30}},
		{ID: "tomorrow", Kind: domain.KindFeeding, StartTime: dayEnd.Add(time.Millisecond)},
	}
	for _, r := range records {
		r.TenantID, r.SubjectID = baby.TenantID, baby.ID
		require.NoError(t, store.Create(ctx, r))
	}
	require.NoError(t, store.Create(ctx, domain.Activity{ID: "sibling", TenantID: "t1", SubjectID: "other", Kind: domain.KindDiaper, StartTime: dayStart.Add(time.Hour)}))

	got, err := store.ListOverlapping(ctx, baby, dayStart, dayEnd)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	require.Equal(t, []string{"ongoing", "overnight", "at-end"}, ids)
}

func TestUpdateAndDeleteReturnPreviousVersion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	baby := domain.Subject{TenantID: "t1", ID: "baby"}
	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	original := domain.Activity{ID: "f1", TenantID: "t1", SubjectID: "baby", Kind: domain.KindFeeding, StartTime: start, Payload: domain.Feeding{VolumeMl: 90}}
	require.NoError(t, store.Create(ctx, original))

	revised := original
	revised.Payload = domain.Feeding{VolumeMl: 120}
	previous, err := store.Update(ctx, revised)
	require.NoError(t, err)
	require.Equal(t, 90, previous.FeedingVolume())

	stored, err := store.Get(ctx, baby, "f1")
	require.NoError(t, err)
	require.Equal(t, 120, stored.FeedingVolume())
	require.False(t, stored.RecordedAt.IsZero())

	removed, err := store.Delete(ctx, baby, "f1")
	require.NoError(t, err)
	require.Equal(t, 120, removed.FeedingVolume())

	missing, err := store.Get(ctx, baby, "f1")
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = store.Delete(ctx, baby, "f1")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
	_, err = store.Update(ctx, revised)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}
