package room

import "context"

type SetHostParams struct {
	SenderId  string
	RoomId    string
	NewHostId string
}

// SetHost is an immediate handoff, independent of the claim/approve
// flow. Accepted only from the current host; a hostless room is already
// bootstrapped by the caller's implicit join.
func (s *Service) SetHost(ctx context.Context, params *SetHostParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if !state.HasParticipant(params.NewHostId) {
		return s.reject(&state, KindInvalidArgument, "new host is not a participant"), nil
	}

	s.advanceAnchor(&state)
	state.HostId = params.NewHostId
	state.PendingHostId = ""

	return s.accept(ctx, &state, "host_changed", params.SenderId, "")
}

type RequestHostClaimParams struct {
	SenderId string
	RoomId   string
}

// RequestHostClaim records at most one pending claim. A repeat request
// by the same pending participant is idempotently accepted; a third
// participant's request while one is pending is rejected.
func (s *Service) RequestHostClaim(ctx context.Context, params *RequestHostClaimParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if state.HostId == params.SenderId {
		return s.reject(&state, KindInvalidArgument, "you are already the host"), nil
	}

	if state.PendingHostId != "" && state.PendingHostId != params.SenderId {
		return s.reject(&state, KindInvalidArgument, "another host claim is already pending"), nil
	}

	s.advanceAnchor(&state)
	state.PendingHostId = params.SenderId

	return s.accept(ctx, &state, "host_claim_requested", params.SenderId, "waiting for host approval")
}

type DecideHostClaimParams struct {
	SenderId        string
	RoomId          string
	RequesterUserId string
	Approve         bool
}

// DecideHostClaim lets the host approve or reject the pending claim.
// Approval moves host to the claimant; either decision clears pending.
func (s *Service) DecideHostClaim(ctx context.Context, params *DecideHostClaimParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if state.PendingHostId == "" || state.PendingHostId != params.RequesterUserId {
		return s.reject(&state, KindNotFound, "no such pending host claim"), nil
	}

	s.advanceAnchor(&state)
	if params.Approve {
		state.HostId = params.RequesterUserId
	}
	state.PendingHostId = ""

	return s.accept(ctx, &state, "host_claim_decided", params.SenderId, "")
}
