package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/LFronza/CineLink-sub000/internal/repository/room"
	"github.com/LFronza/CineLink-sub000/internal/resolver"
	"github.com/LFronza/CineLink-sub000/internal/service/transcode"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

// RoomRepo is the narrow persistence surface for room state. An
// in-memory implementation serves tests, a redis one serves production;
// protocol logic does not change between them.
type RoomRepo interface {
	GetRoom(ctx context.Context, roomId string) (room.State, error)
	UpsertRoom(ctx context.Context, state *room.State) error
	DeleteRoom(ctx context.Context, roomId string) error
	GetRoomIds(ctx context.Context) ([]string, error)
}

type iConnRepo interface {
	Add(conn *wsconn.Conn, userId, roomId string) error
	RemoveByConn(conn *wsconn.Conn) error
	RemoveByUserId(userId string) error
	GetConn(userId string) (*wsconn.Conn, error)
	GetUserId(conn *wsconn.Conn) (string, error)
	GetRoomConns(roomId string) []*wsconn.Conn
}

type iMediaResolver interface {
	Resolve(ctx context.Context, input string) (resolver.Resolution, error)
}

type iPipeline interface {
	GetOrStart(ctx context.Context, inputUrl string) transcode.Job
}

type Config struct {
	MembersLimit  int
	PlaylistLimit int
	// Preroll is the buffering window between arming a launch and the
	// instant all clients start together.
	Preroll time.Duration
	// LaunchGrace is how long past its deadline an armed handshake may
	// linger before it is cleared.
	LaunchGrace time.Duration
}

type Service struct {
	roomRepo RoomRepo
	connRepo iConnRepo
	resolver iMediaResolver
	pipeline iPipeline
	clock    clockwork.Clock
	logger   *slog.Logger

	membersLimit  int
	playlistLimit int
	preroll       time.Duration
	launchGrace   time.Duration

	roomLocks sync.Map // roomId -> *sync.Mutex

	timersMu     sync.Mutex
	launchTimers map[string]clockwork.Timer

	onUpdate func(Update)
}

func NewService(roomRepo RoomRepo, connRepo iConnRepo, mediaResolver iMediaResolver, pipeline iPipeline, clock clockwork.Clock, logger *slog.Logger, cfg *Config) *Service {
	preroll := cfg.Preroll
	if preroll == 0 {
		preroll = 2200 * time.Millisecond
	}
	launchGrace := cfg.LaunchGrace
	if launchGrace == 0 {
		launchGrace = 12 * time.Second
	}

	return &Service{
		roomRepo:      roomRepo,
		connRepo:      connRepo,
		resolver:      mediaResolver,
		pipeline:      pipeline,
		clock:         clock,
		logger:        logger,
		membersLimit:  cfg.MembersLimit,
		playlistLimit: cfg.PlaylistLimit,
		preroll:       preroll,
		launchGrace:   launchGrace,
		launchTimers:  make(map[string]clockwork.Timer),
	}
}

// OnUpdate registers the broadcast boundary for updates produced outside
// a request, e.g. a launch deadline expiring.
func (s *Service) OnUpdate(fn func(Update)) {
	s.onUpdate = fn
}
