package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LFronza/CineLink-sub000/internal/service/room"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
	"github.com/LFronza/CineLink-sub000/pkg/wsrouter"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type EmptyInput struct{}

// handle decodes and validates a typed payload before invoking the
// handler; malformed payloads never reach the service layer.
func handle[T any](c *controller, h func(ctx context.Context, conn *wsconn.Conn, input T) error) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				c.writeRejection(conn, room.KindInvalidArgument, "malformed payload")
				return
			}
		}

		if validationErrors, ok := c.validate.Validate(input); !ok {
			c.logger.DebugContext(ctx, "invalid input", "errors", validationErrors)
			c.writeRejection(conn, room.KindInvalidArgument, fmt.Sprintf("invalid payload: %v", validationErrors))
			return
		}

		if err := h(ctx, conn, input); err != nil {
			c.logger.WarnContext(ctx, "handler failed", "error", err)
			c.writeRejection(conn, room.KindUpstreamFailure, "internal error, try again")
		}
	}
}

func (c *controller) writeRejection(conn *wsconn.Conn, kind room.Kind, message string) {
	if err := conn.WriteJSON(&Output{
		Type: "result",
		Payload: room.Result{
			Accepted: false,
			Kind:     kind,
			Message:  message,
		},
	}); err != nil {
		c.logger.Info("failed to write rejection", "error", err)
	}
}

// respond writes the result to the caller and, when the mutation was
// accepted, broadcasts the update to the room.
func (c *controller) respond(ctx context.Context, conn *wsconn.Conn, result room.Result) error {
	if err := conn.WriteJSON(&Output{Type: "result", Payload: result}); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if result.Accepted && result.Update != nil {
		c.BroadcastUpdate(*result.Update)
	}

	return nil
}

func (c *controller) handleAlive(_ context.Context, _ *wsconn.Conn, _ EmptyInput) error {
	return nil
}

func (c *controller) handleGetRoomState(ctx context.Context, conn *wsconn.Conn, _ EmptyInput) error {
	result, err := c.roomService.GetRoomState(ctx, &room.GetRoomStateParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to get room state: %w", err)
	}

	return conn.WriteJSON(&Output{Type: "room_state", Payload: result.State})
}

type SetHostInput struct {
	NewHostId string `json:"new_host_id" validate:"required"`
}

func (c *controller) handleSetHost(ctx context.Context, conn *wsconn.Conn, input SetHostInput) error {
	result, err := c.roomService.SetHost(ctx, &room.SetHostParams{
		SenderId:  c.getUserIdFromCtx(ctx),
		RoomId:    c.getRoomIdFromCtx(ctx),
		NewHostId: input.NewHostId,
	})
	if err != nil {
		return fmt.Errorf("failed to set host: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type SetRoomNameInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (c *controller) handleSetRoomName(ctx context.Context, conn *wsconn.Conn, input SetRoomNameInput) error {
	result, err := c.roomService.SetRoomName(ctx, &room.SetRoomNameParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Name:     input.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to set room name: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type SetViewerQueuePolicyInput struct {
	AllowViewerQueue bool `json:"allow_viewer_queue"`
}

func (c *controller) handleSetViewerQueuePolicy(ctx context.Context, conn *wsconn.Conn, input SetViewerQueuePolicyInput) error {
	result, err := c.roomService.SetViewerQueuePolicy(ctx, &room.SetViewerQueuePolicyParams{
		SenderId:         c.getUserIdFromCtx(ctx),
		RoomId:           c.getRoomIdFromCtx(ctx),
		AllowViewerQueue: input.AllowViewerQueue,
	})
	if err != nil {
		return fmt.Errorf("failed to set viewer queue policy: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handleRequestHostClaim(ctx context.Context, conn *wsconn.Conn, _ EmptyInput) error {
	result, err := c.roomService.RequestHostClaim(ctx, &room.RequestHostClaimParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to request host claim: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type DecideHostClaimInput struct {
	RequesterUserId string `json:"requester_user_id" validate:"required"`
	Approve         bool   `json:"approve"`
}

func (c *controller) handleDecideHostClaim(ctx context.Context, conn *wsconn.Conn, input DecideHostClaimInput) error {
	result, err := c.roomService.DecideHostClaim(ctx, &room.DecideHostClaimParams{
		SenderId:        c.getUserIdFromCtx(ctx),
		RoomId:          c.getRoomIdFromCtx(ctx),
		RequesterUserId: input.RequesterUserId,
		Approve:         input.Approve,
	})
	if err != nil {
		return fmt.Errorf("failed to decide host claim: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type MediaUrlInput struct {
	Url string `json:"url" validate:"required,max=2048"`
}

func (c *controller) handleSetMedia(ctx context.Context, conn *wsconn.Conn, input MediaUrlInput) error {
	result, err := c.roomService.SetMedia(ctx, &room.SetMediaParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		MediaUrl: input.Url,
	})
	if err != nil {
		return fmt.Errorf("failed to set media: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handleAddQueueNext(ctx context.Context, conn *wsconn.Conn, input MediaUrlInput) error {
	result, err := c.roomService.AddQueueNext(ctx, &room.AddQueueParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		MediaUrl: input.Url,
	})
	if err != nil {
		return fmt.Errorf("failed to add queue next: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handleAddQueueLast(ctx context.Context, conn *wsconn.Conn, input MediaUrlInput) error {
	result, err := c.roomService.AddQueueLast(ctx, &room.AddQueueParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		MediaUrl: input.Url,
	})
	if err != nil {
		return fmt.Errorf("failed to add queue last: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type AutoplayInput struct {
	Autoplay bool `json:"autoplay"`
}

func (c *controller) handleAdvanceQueue(ctx context.Context, conn *wsconn.Conn, input AutoplayInput) error {
	result, err := c.roomService.AdvanceQueue(ctx, &room.AdvanceQueueParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Autoplay: input.Autoplay,
	})
	if err != nil {
		return fmt.Errorf("failed to advance queue: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handlePreviousQueue(ctx context.Context, conn *wsconn.Conn, input AutoplayInput) error {
	result, err := c.roomService.PreviousQueue(ctx, &room.AdvanceQueueParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Autoplay: input.Autoplay,
	})
	if err != nil {
		return fmt.Errorf("failed to rewind queue: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type RemoveQueueItemInput struct {
	Index int `json:"index" validate:"min=0"`
}

func (c *controller) handleRemoveQueueItem(ctx context.Context, conn *wsconn.Conn, input RemoveQueueItemInput) error {
	result, err := c.roomService.RemoveQueueItem(ctx, &room.RemoveQueueItemParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Index:    input.Index,
	})
	if err != nil {
		return fmt.Errorf("failed to remove queue item: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type MoveQueueItemInput struct {
	From int `json:"from" validate:"min=0"`
	To   int `json:"to" validate:"min=0"`
}

func (c *controller) handleMoveQueueItem(ctx context.Context, conn *wsconn.Conn, input MoveQueueItemInput) error {
	result, err := c.roomService.MoveQueueItem(ctx, &room.MoveQueueItemParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		From:     input.From,
		To:       input.To,
	})
	if err != nil {
		return fmt.Errorf("failed to move queue item: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type SetDurationInput struct {
	Seconds float64 `json:"seconds" validate:"min=0"`
}

func (c *controller) handleSetDuration(ctx context.Context, conn *wsconn.Conn, input SetDurationInput) error {
	result, err := c.roomService.SetDuration(ctx, &room.SetDurationParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Seconds:  input.Seconds,
	})
	if err != nil {
		return fmt.Errorf("failed to set duration: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handlePlay(ctx context.Context, conn *wsconn.Conn, _ EmptyInput) error {
	result, err := c.roomService.Play(ctx, &room.PlayParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handlePause(ctx context.Context, conn *wsconn.Conn, _ EmptyInput) error {
	result, err := c.roomService.Pause(ctx, &room.PlayParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type SeekInput struct {
	AtSeconds float64 `json:"at_seconds" validate:"min=0"`
}

func (c *controller) handleSeek(ctx context.Context, conn *wsconn.Conn, input SeekInput) error {
	result, err := c.roomService.Seek(ctx, &room.SeekParams{
		SenderId:  c.getUserIdFromCtx(ctx),
		RoomId:    c.getRoomIdFromCtx(ctx),
		AtSeconds: input.AtSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type SetRateInput struct {
	Rate float64 `json:"rate" validate:"required"`
}

func (c *controller) handleSetRate(ctx context.Context, conn *wsconn.Conn, input SetRateInput) error {
	result, err := c.roomService.SetRate(ctx, &room.SetRateParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Rate:     input.Rate,
	})
	if err != nil {
		return fmt.Errorf("failed to set rate: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type ReportSyncStatusInput struct {
	Ready       bool    `json:"ready"`
	CurrentTime float64 `json:"current_time" validate:"min=0"`
}

func (c *controller) handleReportSyncStatus(ctx context.Context, conn *wsconn.Conn, input ReportSyncStatusInput) error {
	result, err := c.roomService.ReportSyncStatus(ctx, &room.ReportSyncStatusParams{
		SenderId:    c.getUserIdFromCtx(ctx),
		RoomId:      c.getRoomIdFromCtx(ctx),
		Ready:       input.Ready,
		CurrentTime: input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to report sync status: %w", err)
	}

	return c.respond(ctx, conn, result)
}

type HostStartSyncInput struct {
	Mode string `json:"mode" validate:"required"`
}

func (c *controller) handleHostStartSync(ctx context.Context, conn *wsconn.Conn, input HostStartSyncInput) error {
	result, err := c.roomService.HostStartSync(ctx, &room.HostStartSyncParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Mode:     input.Mode,
	})
	if err != nil {
		return fmt.Errorf("failed to start sync: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handleHostLaunchSync(ctx context.Context, conn *wsconn.Conn, _ EmptyInput) error {
	result, err := c.roomService.HostLaunchSync(ctx, &room.HostLaunchSyncParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to launch sync: %w", err)
	}

	return c.respond(ctx, conn, result)
}

func (c *controller) handleLeaveRoom(ctx context.Context, conn *wsconn.Conn, _ EmptyInput) error {
	result, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		SenderId: c.getUserIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return c.respond(ctx, conn, result)
}
