package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/LFronza/CineLink-sub000/internal/service/room"
	"github.com/LFronza/CineLink-sub000/pkg/validator"
)

type iRoomService interface {
	GetRoomState(context.Context, *room.GetRoomStateParams) (room.Result, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.Result, error)
	SetHost(context.Context, *room.SetHostParams) (room.Result, error)
	SetRoomName(context.Context, *room.SetRoomNameParams) (room.Result, error)
	SetViewerQueuePolicy(context.Context, *room.SetViewerQueuePolicyParams) (room.Result, error)
	RequestHostClaim(context.Context, *room.RequestHostClaimParams) (room.Result, error)
	DecideHostClaim(context.Context, *room.DecideHostClaimParams) (room.Result, error)
	SetMedia(context.Context, *room.SetMediaParams) (room.Result, error)
	AddQueueNext(context.Context, *room.AddQueueParams) (room.Result, error)
	AddQueueLast(context.Context, *room.AddQueueParams) (room.Result, error)
	AdvanceQueue(context.Context, *room.AdvanceQueueParams) (room.Result, error)
	PreviousQueue(context.Context, *room.AdvanceQueueParams) (room.Result, error)
	RemoveQueueItem(context.Context, *room.RemoveQueueItemParams) (room.Result, error)
	MoveQueueItem(context.Context, *room.MoveQueueItemParams) (room.Result, error)
	SetDuration(context.Context, *room.SetDurationParams) (room.Result, error)
	Play(context.Context, *room.PlayParams) (room.Result, error)
	Pause(context.Context, *room.PlayParams) (room.Result, error)
	Seek(context.Context, *room.SeekParams) (room.Result, error)
	SetRate(context.Context, *room.SetRateParams) (room.Result, error)
	ReportSyncStatus(context.Context, *room.ReportSyncStatusParams) (room.Result, error)
	HostStartSync(context.Context, *room.HostStartSyncParams) (room.Result, error)
	HostLaunchSync(context.Context, *room.HostLaunchSyncParams) (room.Result, error)
	ConnectParticipant(context.Context, *room.ConnectParticipantParams) error
	DisconnectParticipant(context.Context, *room.ConnectParticipantParams) (room.Result, error)
}

type Config struct {
	StreamDir         string
	ProxyAllowedHosts []string
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger

	streamDir         string
	proxyAllowedHosts []string
	proxyClient       *http.Client
}

func NewController(roomService iRoomService, logger *slog.Logger, cfg *Config) *controller {
	return &controller{
		roomService: roomService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate:          validator.NewValidator(),
		logger:            logger,
		streamDir:         cfg.StreamDir,
		proxyAllowedHosts: cfg.ProxyAllowedHosts,
		proxyClient:       &http.Client{},
	}
}

func (c *controller) generateRequestId() string {
	return uuid.NewString()
}

// BroadcastUpdate writes an accepted state change to every connection
// in the room. Registered as the room service's update sink so timer
// driven updates reach participants too. Connections serialize their
// own writes, so a broadcast may run concurrently with request replies.
func (c *controller) BroadcastUpdate(update room.Update) {
	out := Output{
		Type: update.Action,
		Payload: map[string]any{
			"action":   update.Action,
			"actor_id": update.ActorId,
			"state":    update.State,
		},
	}

	for _, conn := range update.Conns {
		if conn == nil {
			continue
		}
		if err := conn.WriteJSON(&out); err != nil {
			c.logger.Info("failed to write update", "action", update.Action, "error", err)
		}
	}
}
