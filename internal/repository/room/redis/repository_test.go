package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LFronza/CineLink-sub000/internal/repository/room"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rc := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, time.Hour), mr
}

func TestGetRoomNotFound(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.GetRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpsertThenGetRoundTrips(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	state := room.NewState("r1")
	state.Name = "movie night"
	state.ParticipantIds = []string{"alice", "bob"}
	state.HostId = "alice"
	state.MediaUrl = "https://x/a.mp4"
	state.PlaylistUrls = []string{"https://x/b.mp4"}
	state.PlaylistAddedByIds = []string{"bob"}
	state.SyncReportedTime = map[string]float64{"alice": 10, "bob": 4}
	state.Version = 7

	require.NoError(t, r.UpsertRoom(ctx, &state))

	got, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestUpsertOverwrites(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	state := room.NewState("r1")
	require.NoError(t, r.UpsertRoom(ctx, &state))

	state.Version = 3
	state.Name = "renamed"
	require.NoError(t, r.UpsertRoom(ctx, &state))

	got, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "renamed", got.Name)
}

func TestDeleteRoom(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	state := room.NewState("r1")
	require.NoError(t, r.UpsertRoom(ctx, &state))
	require.NoError(t, r.DeleteRoom(ctx, "r1"))

	_, err := r.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	assert.ErrorIs(t, r.DeleteRoom(ctx, "r1"), room.ErrRoomNotFound)
}

func TestGetRoomIds(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"r1", "r2", "r3"} {
		state := room.NewState(id)
		require.NoError(t, r.UpsertRoom(ctx, &state))
	}

	ids, err := r.GetRoomIds(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, ids)
}

func TestRoomExpiresAndRefreshesOnGet(t *testing.T) {
	r, mr := newTestRepo(t)
	ctx := context.Background()

	state := room.NewState("r1")
	require.NoError(t, r.UpsertRoom(ctx, &state))

	mr.FastForward(30 * time.Minute)
	_, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err, "a read within the ttl refreshes it")

	mr.FastForward(50 * time.Minute)
	_, err = r.GetRoom(ctx, "r1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = r.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}
