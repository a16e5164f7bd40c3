package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connInmemory "github.com/LFronza/CineLink-sub000/internal/repository/connection/inmemory"
	roomRedis "github.com/LFronza/CineLink-sub000/internal/repository/room/redis"
	"github.com/LFronza/CineLink-sub000/internal/resolver"
	"github.com/LFronza/CineLink-sub000/internal/service/room"
	"github.com/LFronza/CineLink-sub000/internal/service/transcode"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

type noopPipeline struct{}

func (noopPipeline) GetOrStart(_ context.Context, inputUrl string) transcode.Job {
	return transcode.Job{Key: transcode.Key(inputUrl), Status: transcode.StatusReady}
}

func TestRoomLifecycle(t *testing.T) {
	slog.SetLogLoggerLevel(slog.LevelDebug)
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()
	r := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	roomRepo := roomRedis.NewRepo(r, roomExpireDuration)
	connRepo := connInmemory.NewRepo()
	service := room.NewService(roomRepo, connRepo, resolver.New(nil), noopPipeline{}, clockwork.NewRealClock(), slog.Default(), &room.Config{MembersLimit: 9, PlaylistLimit: 25})

	ctx := context.Background()

	// first participant touches the room and becomes host
	stateResp, err := service.GetRoomState(ctx, &room.GetRoomStateParams{SenderId: "user1", RoomId: "movie-night"})
	require.NoError(t, err)
	require.True(t, stateResp.Accepted)
	assert.Equal(t, "user1", stateResp.State.HostId, "first toucher must be host")
	conn1 := wsconn.New(nil)
	err = service.ConnectParticipant(ctx, &room.ConnectParticipantParams{Conn: conn1, SenderId: "user1", RoomId: "movie-night"})
	require.NoError(t, err)
	t.Log("room created")

	// second participant joins
	stateResp, err = service.GetRoomState(ctx, &room.GetRoomStateParams{SenderId: "user2", RoomId: "movie-night"})
	require.NoError(t, err)
	require.True(t, stateResp.Accepted)
	assert.Equal(t, len(stateResp.State.ParticipantIds), 2, "room must contain 2 participants")
	assert.Equal(t, "user1", stateResp.State.HostId, "host must not change on join")
	conn2 := wsconn.New(nil)
	err = service.ConnectParticipant(ctx, &room.ConnectParticipantParams{Conn: conn2, SenderId: "user2", RoomId: "movie-night"})
	require.NoError(t, err)
	t.Log("participant joined")

	// host queues media
	queueResp, err := service.AddQueueLast(ctx, &room.AddQueueParams{SenderId: "user1", RoomId: "movie-night", MediaUrl: "https://example.com/movie.mp4"})
	require.NoError(t, err)
	require.True(t, queueResp.Accepted)
	assert.Equal(t, len(queueResp.State.PlaylistUrls), 1, "playlist must contain 1 item")
	assert.Equal(t, queueResp.State.PlaylistAddedByIds[0], "user1", "added by id is not equal")
	require.NotNil(t, queueResp.Update)
	assert.Equal(t, len(queueResp.Update.Conns), 2, "update must reach 2 conns")
	t.Log("media queued")

	// host advances onto the queued item
	advanceResp, err := service.AdvanceQueue(ctx, &room.AdvanceQueueParams{SenderId: "user1", RoomId: "movie-night", Autoplay: true})
	require.NoError(t, err)
	require.True(t, advanceResp.Accepted)
	assert.Equal(t, "https://example.com/movie.mp4", advanceResp.State.MediaUrl)
	assert.True(t, advanceResp.State.IsPlaying)
	t.Log("queue advanced")

	// participant 2 disconnects
	leaveResp, err := service.DisconnectParticipant(ctx, &room.ConnectParticipantParams{Conn: conn2, SenderId: "user2", RoomId: "movie-night"})
	require.NoError(t, err)
	require.True(t, leaveResp.Accepted)
	assert.Equal(t, len(leaveResp.State.ParticipantIds), 1, "room must contain 1 participant")
	assert.Equal(t, "user1", leaveResp.State.ParticipantIds[0])
	t.Log("participant 2 disconnected")

	t.Log(r.Keys(ctx, "*").Val())
}
