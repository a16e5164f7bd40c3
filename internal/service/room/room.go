package room

import (
	"context"
	"strings"
)

type GetRoomStateParams struct {
	SenderId string
	RoomId   string
}

// GetRoomState never fails for an unseen room id: it creates a default
// state, joins the caller and bootstraps host on a hostless room. The
// implicit join does not bump version; only explicit mutations do.
func (s *Service) GetRoomState(ctx context.Context, params *GetRoomStateParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, "")
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load room", "error", err)
		return Result{}, err
	}

	if !state.HasParticipant(params.SenderId) && s.membersLimit > 0 && len(state.ParticipantIds) >= s.membersLimit {
		return s.reject(&state, KindInvalidArgument, "room is full"), nil
	}

	state, err = s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load room", "error", err)
		return Result{}, err
	}

	return Result{
		Accepted: true,
		State:    state,
		Update: &Update{
			Action:  "participant_joined",
			ActorId: params.SenderId,
			State:   state,
			Conns:   s.connRepo.GetRoomConns(params.RoomId),
		},
	}, nil
}

type LeaveRoomParams struct {
	SenderId string
	RoomId   string
}

// LeaveRoom removes the caller from the room. The last participant out
// deletes the room; a departing host hands authority to the first
// remaining participant in join order.
func (s *Service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, "")
	if err != nil {
		return Result{}, err
	}

	if !state.HasParticipant(params.SenderId) {
		return s.reject(&state, KindNotFound, "not a participant of this room"), nil
	}

	remaining := make([]string, 0, len(state.ParticipantIds)-1)
	for _, id := range state.ParticipantIds {
		if id != params.SenderId {
			remaining = append(remaining, id)
		}
	}
	state.ParticipantIds = remaining

	if len(state.ParticipantIds) == 0 {
		s.cancelLaunchTimer(params.RoomId)
		if err := s.roomRepo.DeleteRoom(ctx, params.RoomId); err != nil {
			s.logger.WarnContext(ctx, "failed to delete room", "error", err)
			return Result{}, err
		}

		return Result{
			Accepted: true,
			Message:  "room deleted",
			State:    state,
		}, nil
	}

	switch params.SenderId {
	case state.HostId:
		state.HostId = state.ParticipantIds[0]
		state.PendingHostId = ""
	case state.PendingHostId:
		state.PendingHostId = ""
	}

	s.advanceAnchor(&state)

	return s.accept(ctx, &state, "participant_left", params.SenderId, "")
}

type SetRoomNameParams struct {
	SenderId string
	RoomId   string
	Name     string
}

const maxRoomNameLength = 100

func (s *Service) SetRoomName(ctx context.Context, params *SetRoomNameParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	name := strings.TrimSpace(params.Name)
	if name == "" || len(name) > maxRoomNameLength {
		return s.reject(&state, KindInvalidArgument, "room name must be 1-100 characters"), nil
	}

	s.advanceAnchor(&state)
	state.Name = name

	return s.accept(ctx, &state, "room_renamed", params.SenderId, "")
}

type SetViewerQueuePolicyParams struct {
	SenderId         string
	RoomId           string
	AllowViewerQueue bool
}

func (s *Service) SetViewerQueuePolicy(ctx context.Context, params *SetViewerQueuePolicyParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	s.advanceAnchor(&state)
	state.ViewerQueueAllowed = params.AllowViewerQueue

	return s.accept(ctx, &state, "queue_policy_changed", params.SenderId, "")
}
