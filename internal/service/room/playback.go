package room

import "context"

// Direct playback mutations are host-only. The server stores only an
// anchor: clients derive the expected position as CurrentTime plus
// elapsed time since UpdatedAt while playing. Each direct mutation
// supersedes any pending launch handshake.

type PlayParams struct {
	SenderId string
	RoomId   string
}

func (s *Service) Play(ctx context.Context, params *PlayParams) (Result, error) {
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
	state.IsPlaying = true
	s.clearHandshake(&state)

	return s.accept(ctx, &state, "playback_started", params.SenderId, "")
}

func (s *Service) Pause(ctx context.Context, params *PlayParams) (Result, error) {
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
	state.IsPlaying = false
	s.clearHandshake(&state)

	return s.accept(ctx, &state, "playback_paused", params.SenderId, "")
}

type SeekParams struct {
	SenderId  string
	RoomId    string
	AtSeconds float64
}

func (s *Service) Seek(ctx context.Context, params *SeekParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if params.AtSeconds < 0 {
		return s.reject(&state, KindInvalidArgument, "seek position must not be negative"), nil
	}

	state.CurrentTime = params.AtSeconds
	s.clearHandshake(&state)

	return s.accept(ctx, &state, "playback_seeked", params.SenderId, "")
}

type SetRateParams struct {
	SenderId string
	RoomId   string
	Rate     float64
}

func (s *Service) SetRate(ctx context.Context, params *SetRateParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if params.Rate < 0.25 || params.Rate > 3 {
		return s.reject(&state, KindInvalidArgument, "playback rate must be between 0.25 and 3"), nil
	}

	// Fold at the old rate before the new one takes effect.
	s.advanceAnchor(&state)
	state.PlaybackRate = params.Rate
	s.clearHandshake(&state)

	return s.accept(ctx, &state, "playback_rate_changed", params.SenderId, "")
}

type SetDurationParams struct {
	SenderId string
	RoomId   string
	Seconds  float64
}

func (s *Service) SetDuration(ctx context.Context, params *SetDurationParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if params.Seconds < 0 {
		return s.reject(&state, KindInvalidArgument, "duration must not be negative"), nil
	}

	s.advanceAnchor(&state)
	state.Duration = params.Seconds

	return s.accept(ctx, &state, "duration_changed", params.SenderId, "")
}
