package room

import (
	"context"
	"fmt"
)

type SetMediaParams struct {
	SenderId string
	RoomId   string
	MediaUrl string
}

// SetMedia replaces the current item. When the resolver expands one
// reference into several urls, the first becomes current and the rest
// are inserted at the queue head in the caller's order.
func (s *Service) SetMedia(ctx context.Context, params *SetMediaParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	res, rejected := s.resolveMedia(ctx, &state, params.MediaUrl)
	if rejected != nil {
		return *rejected, nil
	}

	state.MediaUrl = res.Urls[0]
	state.CurrentMediaAddedById = params.SenderId

	if extra := res.Urls[1:]; len(extra) > 0 {
		if len(state.PlaylistUrls)+len(extra) > s.playlistLimit {
			return s.reject(&state, KindInvalidArgument, "playlist limit reached"), nil
		}
		addedBy := make([]string, len(extra))
		for i := range addedBy {
			addedBy[i] = params.SenderId
		}
		state.PlaylistUrls = append(append([]string(nil), extra...), state.PlaylistUrls...)
		state.PlaylistAddedByIds = append(addedBy, state.PlaylistAddedByIds...)
	}

	state.CurrentTime = 0
	state.Duration = 0
	state.IsPlaying = false
	s.clearHandshake(&state)
	s.applyPipeline(ctx, &state)
	s.prewarmQueue(state.PlaylistUrls)

	return s.accept(ctx, &state, "media_changed", params.SenderId, "")
}

type AddQueueParams struct {
	SenderId string
	RoomId   string
	MediaUrl string
}

// AddQueueNext inserts at the queue head, host-only. Expanded urls keep
// the caller's order immediately after the current item.
func (s *Service) AddQueueNext(ctx context.Context, params *AddQueueParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	res, rejected := s.resolveMedia(ctx, &state, params.MediaUrl)
	if rejected != nil {
		return *rejected, nil
	}

	if len(state.PlaylistUrls)+len(res.Urls) > s.playlistLimit {
		return s.reject(&state, KindInvalidArgument, "playlist limit reached"), nil
	}

	s.advanceAnchor(&state)
	addedBy := make([]string, len(res.Urls))
	for i := range addedBy {
		addedBy[i] = params.SenderId
	}
	state.PlaylistUrls = append(append([]string(nil), res.Urls...), state.PlaylistUrls...)
	state.PlaylistAddedByIds = append(addedBy, state.PlaylistAddedByIds...)

	s.prewarmQueue(res.Urls)

	return s.accept(ctx, &state, "queue_added_next", params.SenderId, "")
}

// AddQueueLast appends to the tail. Hosts always may; a viewer only when
// the room's viewer-queue policy allows it, and never at the head.
func (s *Service) AddQueueLast(ctx context.Context, params *AddQueueParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if state.HostId == "" {
		return s.reject(&state, KindPermissionDenied, "set a host first"), nil
	}
	if state.HostId != params.SenderId && !state.ViewerQueueAllowed {
		return s.reject(&state, KindPermissionDenied, "viewers are not allowed to queue in this room"), nil
	}

	res, rejected := s.resolveMedia(ctx, &state, params.MediaUrl)
	if rejected != nil {
		return *rejected, nil
	}

	if len(state.PlaylistUrls)+len(res.Urls) > s.playlistLimit {
		return s.reject(&state, KindInvalidArgument, "playlist limit reached"), nil
	}

	s.advanceAnchor(&state)
	for range res.Urls {
		state.PlaylistAddedByIds = append(state.PlaylistAddedByIds, params.SenderId)
	}
	state.PlaylistUrls = append(state.PlaylistUrls, res.Urls...)

	s.prewarmQueue(res.Urls)

	return s.accept(ctx, &state, "queue_added_last", params.SenderId, "")
}

type AdvanceQueueParams struct {
	SenderId string
	RoomId   string
	Autoplay bool
}

// AdvanceQueue pushes the current item onto history and pops the queue
// head into current. An empty queue stops playback and leaves the
// current media untouched.
func (s *Service) AdvanceQueue(ctx context.Context, params *AdvanceQueueParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if len(state.PlaylistUrls) == 0 {
		s.advanceAnchor(&state)
		state.IsPlaying = false
		return s.accept(ctx, &state, "queue_advanced", params.SenderId, "queue is empty")
	}

	if state.MediaUrl != "" {
		state.HistoryUrls = append(state.HistoryUrls, state.MediaUrl)
		state.HistoryAddedByIds = append(state.HistoryAddedByIds, state.CurrentMediaAddedById)
	}

	state.MediaUrl = state.PlaylistUrls[0]
	state.CurrentMediaAddedById = state.PlaylistAddedByIds[0]
	state.PlaylistUrls = state.PlaylistUrls[1:]
	state.PlaylistAddedByIds = state.PlaylistAddedByIds[1:]

	state.CurrentTime = 0
	state.Duration = 0
	state.IsPlaying = params.Autoplay
	s.clearHandshake(&state)
	s.applyPipeline(ctx, &state)
	s.prewarmQueue(state.PlaylistUrls)

	return s.accept(ctx, &state, "queue_advanced", params.SenderId, "")
}

// PreviousQueue is the exact mirror of AdvanceQueue using the history
// tail.
func (s *Service) PreviousQueue(ctx context.Context, params *AdvanceQueueParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	if len(state.HistoryUrls) == 0 {
		s.advanceAnchor(&state)
		state.IsPlaying = false
		return s.accept(ctx, &state, "queue_rewound", params.SenderId, "history is empty")
	}

	if state.MediaUrl != "" {
		state.PlaylistUrls = append([]string{state.MediaUrl}, state.PlaylistUrls...)
		state.PlaylistAddedByIds = append([]string{state.CurrentMediaAddedById}, state.PlaylistAddedByIds...)
	}

	last := len(state.HistoryUrls) - 1
	state.MediaUrl = state.HistoryUrls[last]
	state.CurrentMediaAddedById = state.HistoryAddedByIds[last]
	state.HistoryUrls = state.HistoryUrls[:last]
	state.HistoryAddedByIds = state.HistoryAddedByIds[:last]

	state.CurrentTime = 0
	state.Duration = 0
	state.IsPlaying = params.Autoplay
	s.clearHandshake(&state)
	s.applyPipeline(ctx, &state)
	s.prewarmQueue(state.PlaylistUrls)

	return s.accept(ctx, &state, "queue_rewound", params.SenderId, "")
}

type RemoveQueueItemParams struct {
	SenderId string
	RoomId   string
	Index    int
}

// RemoveQueueItem is permitted for the host or for the original adder
// of the removed index.
func (s *Service) RemoveQueueItem(ctx context.Context, params *RemoveQueueItemParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if params.Index < 0 || params.Index >= len(state.PlaylistUrls) {
		return s.reject(&state, KindInvalidArgument, fmt.Sprintf("queue index %d is out of range", params.Index)), nil
	}

	if state.HostId != params.SenderId && state.PlaylistAddedByIds[params.Index] != params.SenderId {
		return s.reject(&state, KindPermissionDenied, "only host or the original adder can remove this item"), nil
	}

	s.advanceAnchor(&state)
	state.PlaylistUrls = append(state.PlaylistUrls[:params.Index], state.PlaylistUrls[params.Index+1:]...)
	state.PlaylistAddedByIds = append(state.PlaylistAddedByIds[:params.Index], state.PlaylistAddedByIds[params.Index+1:]...)

	return s.accept(ctx, &state, "queue_removed", params.SenderId, "")
}

type MoveQueueItemParams struct {
	SenderId string
	RoomId   string
	From     int
	To       int
}

// MoveQueueItem relocates one url/attribution pair together; host-only.
func (s *Service) MoveQueueItem(ctx context.Context, params *MoveQueueItemParams) (Result, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	state, err := s.loadRoom(ctx, params.RoomId, params.SenderId)
	if err != nil {
		return Result{}, err
	}

	if rejected := s.requireHost(&state, params.SenderId); rejected != nil {
		return *rejected, nil
	}

	n := len(state.PlaylistUrls)
	if params.From < 0 || params.From >= n || params.To < 0 || params.To >= n {
		return s.reject(&state, KindInvalidArgument, "queue index out of range"), nil
	}

	s.advanceAnchor(&state)
	if params.From != params.To {
		movedUrl := state.PlaylistUrls[params.From]
		movedBy := state.PlaylistAddedByIds[params.From]

		state.PlaylistUrls = append(state.PlaylistUrls[:params.From], state.PlaylistUrls[params.From+1:]...)
		state.PlaylistAddedByIds = append(state.PlaylistAddedByIds[:params.From], state.PlaylistAddedByIds[params.From+1:]...)

		state.PlaylistUrls = append(state.PlaylistUrls[:params.To], append([]string{movedUrl}, state.PlaylistUrls[params.To:]...)...)
		state.PlaylistAddedByIds = append(state.PlaylistAddedByIds[:params.To], append([]string{movedBy}, state.PlaylistAddedByIds[params.To:]...)...)
	}

	return s.accept(ctx, &state, "queue_moved", params.SenderId, "")
}
