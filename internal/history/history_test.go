package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/recommender/internal/trip"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndRecent_NewestFirst(t *testing.T) {
	t.Parallel()
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	beaches := trip.Params{Category: trip.Beaches, Budget: 5000, Headcount: 2, Type: trip.Couples, Month: time.June}
	mountains := trip.Params{Category: trip.Mountains, Budget: 9000, Headcount: 4, Type: trip.Family, Month: time.May}

	require.NoError(t, s.Record(ctx, Record{RunID: "a", Params: beaches, Status: StatusSucceeded,
		Elapsed: 1500 * time.Millisecond, Result: "Go to Goa.", CreatedAt: base}))
	require.NoError(t, s.Record(ctx, Record{RunID: "b", Params: mountains, Status: StatusFailed,
		Error: "rate limited", CreatedAt: base.Add(time.Hour)}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].RunID)
	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Equal(t, "rate limited", got[0].Error)
	assert.Equal(t, mountains, got[0].Params)

	assert.Equal(t, "a", got[1].RunID)
	assert.Equal(t, beaches, got[1].Params)
	assert.Equal(t, "Go to Goa.", got[1].Result)
	assert.Equal(t, 1500*time.Millisecond, got[1].Elapsed)
	assert.True(t, base.Equal(got[1].CreatedAt))

	one, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestStore_Recent_OrdersWithinOneSecond(t *testing.T) {
	t.Parallel()
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	p := trip.Params{Category: trip.Beaches, Budget: 5000, Headcount: 2, Type: trip.Couples, Month: time.June}
	require.NoError(t, s.Record(ctx, Record{RunID: "later", Params: p, Status: StatusSucceeded,
		CreatedAt: base.Add(100 * time.Millisecond)}))
	require.NoError(t, s.Record(ctx, Record{RunID: "earlier", Params: p, Status: StatusSucceeded, CreatedAt: base}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "later", got[0].RunID)
	assert.Equal(t, "earlier", got[1].RunID)
	assert.True(t, base.Add(100*time.Millisecond).Equal(got[0].CreatedAt))
}

func TestStore_Record_RejectsDuplicateRunID(t *testing.T) {
	t.Parallel()
	s := openTemp(t)
	ctx := context.Background()

	r := Record{RunID: "dup", Params: trip.Params{Category: trip.Heritage, Type: trip.Solo, Month: time.March}, Status: StatusSucceeded}
	require.NoError(t, s.Record(ctx, r))
	assert.ErrorContains(t, s.Record(ctx, r), "recording run dup")
}

func TestStore_CategoryCounts(t *testing.T) {
	t.Parallel()
	s := openTemp(t)
	ctx := context.Background()

	for i, c := range []trip.Category{trip.Beaches, trip.Beaches, trip.RoadTrip} {
		require.NoError(t, s.Record(ctx, Record{
			RunID:  string(rune('a' + i)),
			Params: trip.Params{Category: c, Type: trip.Friends, Month: time.July},
			Status: StatusSucceeded,
		}))
	}
	counts, err := s.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[trip.Category]int{trip.Beaches: 2, trip.RoadTrip: 1}, counts)
}

func TestDisabledStore_IsNoOp(t *testing.T) {
	t.Parallel()
	s := Disabled()
	ctx := context.Background()

	assert.False(t, s.Enabled())
	assert.NoError(t, s.Record(ctx, Record{RunID: "x"}))
	got, err := s.Recent(ctx, 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, s.Close())
}
