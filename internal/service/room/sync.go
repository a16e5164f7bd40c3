package room

import (
	"context"
	"time"

	"github.com/LFronza/CineLink-sub000/internal/repository/room"
)

type ReportSyncStatusParams struct {
	SenderId    string
	RoomId      string
	Ready       bool
	CurrentTime float64
}

// ReportSyncStatus records a participant's readiness and locally
// observed time; the latest report per participant wins.
func (s *Service) ReportSyncStatus(ctx context.Context, params *ReportSyncStatusParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	s.advanceAnchor(&state)
	if state.SyncReportedTime == nil {
		state.SyncReportedTime = make(map[string]float64)
	}
	state.SyncReportedTime[params.SenderId] = params.CurrentTime

	ready := make([]string, 0, len(state.SyncReadyIds)+1)
	for _, id := range state.SyncReadyIds {
		if id != params.SenderId {
			ready = append(ready, id)
		}
	}
	if params.Ready {
		ready = append(ready, params.SenderId)
	}
	state.SyncReadyIds = ready

	return s.accept(ctx, &state, "sync_status_reported", params.SenderId, "")
}

type HostStartSyncParams struct {
	SenderId string
	RoomId   string
	Mode     string
}

// HostStartSync arms a synchronized launch.
//
// "youtube" targets the minimum of all participants' reported times so
// the externally rendered player can rejoin at a common point; the
// deadline is armed immediately and all readiness is reset.
//
// "generic" seeds readiness with the host only and leaves the deadline
// unarmed until HostLaunchSync; re-issuable.
func (s *Service) HostStartSync(ctx context.Context, params *HostStartSyncParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	mode := room.SyncMode(params.Mode)
	if mode != room.SyncModeYouTube && mode != room.SyncModeGeneric {
		return s.reject(&state, KindInvalidArgument, "sync mode must be youtube or generic"), nil
	}

	s.advanceAnchor(&state)

	switch mode {
	case room.SyncModeYouTube:
		target, found := s.minReportedTime(&state)
		if !found {
			target = state.CurrentTime
		}

		state.SyncMode = room.SyncModeYouTube
		state.SyncTarget = target
		state.CurrentTime = target
		state.IsPlaying = false
		state.SyncReadyIds = nil
		state.SyncLaunchAt = s.clock.Now().Add(s.preroll).UnixMilli()
		s.armLaunchTimer(state.Id, state.SyncLaunchAt)

	case room.SyncModeGeneric:
		state.SyncMode = room.SyncModeGeneric
		state.SyncTarget = 0
		state.SyncLaunchAt = 0
		state.SyncReadyIds = []string{params.SenderId}
		s.cancelLaunchTimer(state.Id)
	}

	return s.accept(ctx, &state, "sync_started", params.SenderId, "")
}

type HostLaunchSyncParams struct {
	SenderId string
	RoomId   string
}

// HostLaunchSync arms the deadline of a generic handshake; re-issuable
// to re-arm.
func (s *Service) HostLaunchSync(ctx context.Context, params *HostLaunchSyncParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if state.SyncMode != room.SyncModeGeneric {
		return s.reject(&state, KindInvalidArgument, "start a generic sync first"), nil
	}

	s.advanceAnchor(&state)
	state.SyncLaunchAt = s.clock.Now().Add(s.preroll).UnixMilli()
	s.armLaunchTimer(state.Id, state.SyncLaunchAt)

	return s.accept(ctx, &state, "sync_launched", params.SenderId, "")
}

// minReportedTime is the minimum reported time across the room's
// current participants.
func (s *Service) minReportedTime(state *room.State) (float64, bool) {
	var min float64
	found := false
	for _, id := range state.ParticipantIds {
		t, ok := state.SyncReportedTime[id]
		if !ok {
			continue
		}
		if !found || t < min {
			min = t
			found = true
		}
	}

	return min, found
}

// armLaunchTimer schedules the authoritative expiry of an armed
// handshake at deadline plus grace. Arming replaces any earlier timer
// for the room; superseding actions cancel it via clearHandshake.
func (s *Service) armLaunchTimer(roomId string, deadlineMs int64) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if t, ok := s.launchTimers[roomId]; ok {
		t.Stop()
	}

	wait := time.Duration(deadlineMs-s.clock.Now().UnixMilli())*time.Millisecond + s.launchGrace
	s.launchTimers[roomId] = s.clock.AfterFunc(wait, func() {
		s.expireLaunch(roomId, deadlineMs)
	})
}

func (s *Service) cancelLaunchTimer(roomId string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if t, ok := s.launchTimers[roomId]; ok {
		t.Stop()
		delete(s.launchTimers, roomId)
	}
}

// expireLaunch clears a handshake whose armed deadline was never
// superseded, so no room is stuck showing a perpetually pending launch.
func (s *Service) expireLaunch(roomId string, deadlineMs int64) {
	ctx := context.Background()

	unlock := s.lockRoom(roomId)
	defer unlock()

	state, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return
	}

	if state.SyncMode == room.SyncModeNone || state.SyncLaunchAt != deadlineMs {
		return
	}

	s.advanceAnchor(&state)
	s.clearHandshake(&state)

	result, err := s.accept(ctx, &state, "sync_expired", "", "launch deadline expired")
	if err != nil {
		s.logger.Warn("failed to expire launch", "room_id", roomId, "error", err)
		return
	}

	if s.onUpdate != nil && result.Update != nil {
		s.onUpdate(*result.Update)
	}
}
