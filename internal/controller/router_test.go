package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connInmemory "github.com/LFronza/CineLink-sub000/internal/repository/connection/inmemory"
	roomState "github.com/LFronza/CineLink-sub000/internal/repository/room"
	roomInmemory "github.com/LFronza/CineLink-sub000/internal/repository/room/inmemory"
	"github.com/LFronza/CineLink-sub000/internal/resolver"
	"github.com/LFronza/CineLink-sub000/internal/service/room"
	"github.com/LFronza/CineLink-sub000/internal/service/transcode"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

type readyPipeline struct{}

func (readyPipeline) GetOrStart(_ context.Context, inputUrl string) transcode.Job {
	return transcode.Job{Key: transcode.Key(inputUrl), Status: transcode.StatusReady}
}

func newWiredController(t *testing.T, cfg *room.Config) (*controller, *room.Service, room.RoomRepo) {
	t.Helper()

	roomRepo := roomInmemory.NewRepo()
	service := room.NewService(
		roomRepo,
		connInmemory.NewRepo(),
		resolver.New(nil),
		readyPipeline{},
		clockwork.NewRealClock(),
		slog.Default(),
		cfg,
	)

	ctrl := NewController(service, slog.Default(), &Config{StreamDir: t.TempDir()})
	service.OnUpdate(ctrl.BroadcastUpdate)

	return ctrl, service, roomRepo
}

func wsURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// A plain GET that never completes the websocket handshake must not
// leave the caller behind as a participant, let alone as host.
func TestFailedUpgradeDoesNotJoinRoom(t *testing.T) {
	ctrl, service, repo := newWiredController(t, &room.Config{})
	mux := ctrl.GetMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/r1?user-id=alice", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := repo.GetRoom(context.Background(), "r1")
	assert.True(t, errors.Is(err, roomState.ErrRoomNotFound))

	result, err := service.GetRoomState(context.Background(), &room.GetRoomStateParams{SenderId: "bob", RoomId: "r1"})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	assert.Equal(t, "bob", result.State.HostId)
	assert.Equal(t, []string{"bob"}, result.State.ParticipantIds)
}

func TestServeRoomJoinAndDisconnect(t *testing.T) {
	ctrl, _, repo := newWiredController(t, &room.Config{})
	server := httptest.NewServer(ctrl.GetMux())
	defer server.Close()

	client, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/ws/r1?user-id=alice"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	var out struct {
		Type string `json:"type"`
	}
	require.NoError(t, client.ReadJSON(&out))
	assert.Equal(t, "joined_room", out.Type)

	state, err := repo.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, state.ParticipantIds)

	// Last participant out deletes the room.
	client.Close()
	require.Eventually(t, func() bool {
		_, err := repo.GetRoom(context.Background(), "r1")
		return errors.Is(err, roomState.ErrRoomNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

// A second connection reusing a user id is refused before it touches
// room state, and the original session stays joined.
func TestDuplicateUserIdDoesNotGhostJoin(t *testing.T) {
	ctrl, _, repo := newWiredController(t, &room.Config{})
	server := httptest.NewServer(ctrl.GetMux())
	defer server.Close()

	first, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/ws/r1?user-id=alice"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer first.Close()

	var out struct {
		Type string `json:"type"`
	}
	require.NoError(t, first.ReadJSON(&out))
	require.Equal(t, "joined_room", out.Type)

	second, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/ws/r1?user-id=alice"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer second.Close()

	var rejection struct {
		Type    string `json:"type"`
		Payload struct {
			Accepted bool   `json:"accepted"`
			Kind     string `json:"kind"`
		} `json:"payload"`
	}
	require.NoError(t, second.ReadJSON(&rejection))
	assert.Equal(t, "result", rejection.Type)
	assert.False(t, rejection.Payload.Accepted)

	state, err := repo.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, state.ParticipantIds)
}

// A room at its members limit turns the joiner away over the socket
// without recording a participant.
func TestFullRoomRejectsJoinCleanly(t *testing.T) {
	ctrl, _, repo := newWiredController(t, &room.Config{MembersLimit: 1})
	server := httptest.NewServer(ctrl.GetMux())
	defer server.Close()

	first, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/ws/r1?user-id=alice"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer first.Close()

	var out struct {
		Type string `json:"type"`
	}
	require.NoError(t, first.ReadJSON(&out))
	require.Equal(t, "joined_room", out.Type)

	second, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/ws/r1?user-id=bob"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer second.Close()

	var rejection struct {
		Type string `json:"type"`
	}
	require.NoError(t, second.ReadJSON(&rejection))
	assert.Equal(t, "result", rejection.Type)

	state, err := repo.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, state.ParticipantIds)
}

// Broadcasts, request replies and timer-driven updates may target the
// same socket from different goroutines; the connection must serialize
// them.
func TestConcurrentBroadcastsToOneConn(t *testing.T) {
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer server.Close()

	client, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL, "/"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer client.Close()

	conn := wsconn.New(<-serverConns)
	ctrl := NewController(nil, slog.Default(), &Config{StreamDir: t.TempDir()})

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				ctrl.BroadcastUpdate(room.Update{
					Action: "sync_status_reported",
					State:  roomState.NewState("r1"),
					Conns:  []*wsconn.Conn{conn},
				})
			}
		}()
	}

	for i := 0; i < writers*perWriter; i++ {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err := client.ReadMessage()
		require.NoError(t, err)
	}
	wg.Wait()
}
