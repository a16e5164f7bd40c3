package room

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/LFronza/CineLink-sub000/internal/repository/room"
	"github.com/LFronza/CineLink-sub000/internal/resolver"
	"github.com/LFronza/CineLink-sub000/internal/service/transcode"
)

// lockRoom serializes all mutations against one room id, including any
// resolver or pipeline consultation made while the mutation is applied.
func (s *Service) lockRoom(roomId string) func() {
	v, _ := s.roomLocks.LoadOrStore(roomId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// loadRoom returns the room state, creating a default one on first
// reference, and idempotently adds the caller to the participant list.
// The first caller to touch a hostless room becomes host.
func (s *Service) loadRoom(ctx context.Context, roomId, userId string) (room.State, error) {
	state, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if !errors.Is(err, room.ErrRoomNotFound) {
			return room.State{}, fmt.Errorf("failed to get room: %w", err)
		}
		state = room.NewState(roomId)
	}

	changed := false
	if userId != "" && !state.HasParticipant(userId) {
		state.ParticipantIds = append(state.ParticipantIds, userId)
		changed = true
	}
	if state.HostId == "" && len(state.ParticipantIds) > 0 {
		state.HostId = state.ParticipantIds[0]
		changed = true
	}

	if changed {
		if err := s.roomRepo.UpsertRoom(ctx, &state); err != nil {
			return room.State{}, fmt.Errorf("failed to upsert room: %w", err)
		}
	}

	return state, nil
}

// requireHost gates a host-only operation.
func (s *Service) requireHost(state *room.State, userId string) *Result {
	if state.HostId == "" {
		r := s.reject(state, KindPermissionDenied, "set a host first")
		return &r
	}
	if state.HostId != userId {
		r := s.reject(state, KindPermissionDenied, "only host can control this")
		return &r
	}

	return nil
}

// advanceAnchor folds play time elapsed since the last mutation into
// CurrentTime. accept re-anchors UpdatedAt, so every mutation that does
// not set a new position itself must fold first while the room plays.
func (s *Service) advanceAnchor(state *room.State) {
	if !state.IsPlaying {
		return
	}
	if elapsed := s.clock.Now().UnixMilli() - state.UpdatedAt; elapsed > 0 {
		state.CurrentTime += float64(elapsed) / 1000 * state.PlaybackRate
	}
}

func (s *Service) reject(state *room.State, kind Kind, message string) Result {
	return Result{
		Accepted: false,
		Kind:     kind,
		Message:  message,
		State:    *state,
	}
}

// accept bumps version and the mutation anchor, persists the state and
// packages the update for the broadcast boundary.
func (s *Service) accept(ctx context.Context, state *room.State, action, actorId, message string) (Result, error) {
	state.Version++
	state.UpdatedAt = s.clock.Now().UnixMilli()

	if err := s.roomRepo.UpsertRoom(ctx, state); err != nil {
		return Result{}, fmt.Errorf("failed to upsert room: %w", err)
	}

	return Result{
		Accepted: true,
		Message:  message,
		State:    *state,
		Update: &Update{
			Action:  action,
			ActorId: actorId,
			State:   *state,
			Conns:   s.connRepo.GetRoomConns(state.Id),
		},
	}, nil
}

// applyPipeline resolves the current media item and records its
// playability on the room state. Resolution failures become a persistent
// failed pipeline status rather than a rejected mutation.
func (s *Service) applyPipeline(ctx context.Context, state *room.State) {
	if state.MediaUrl == "" {
		state.MediaSourceType = ""
		state.ResolvedMediaUrl = ""
		state.PipelineStatus = room.PipelineStatusNone
		state.PipelineMessage = ""
		return
	}

	res, err := s.resolver.Resolve(ctx, state.MediaUrl)
	if err != nil {
		state.MediaSourceType = ""
		state.ResolvedMediaUrl = ""
		state.PipelineStatus = room.PipelineStatusFailed
		state.PipelineMessage = err.Error()
		return
	}

	state.MediaSourceType = string(res.SourceType)

	switch {
	case res.NeedsTranscode:
		job := s.pipeline.GetOrStart(ctx, state.MediaUrl)
		state.PipelineStatus = room.PipelineStatus(job.Status)
		state.PipelineMessage = job.Message
		if job.Status == transcode.StatusReady {
			state.ResolvedMediaUrl = streamUrl(job.Key)
		} else {
			state.ResolvedMediaUrl = ""
		}
	case res.NeedsProxy:
		state.ResolvedMediaUrl = proxyUrl(state.MediaUrl)
		state.PipelineStatus = room.PipelineStatusReady
		state.PipelineMessage = ""
	default:
		state.ResolvedMediaUrl = res.Urls[0]
		state.PipelineStatus = room.PipelineStatusReady
		state.PipelineMessage = ""
	}
}

// prewarmQueue starts transcode jobs for queued items so advancing is
// usually a cache hit. Runs outside the room lock.
func (s *Service) prewarmQueue(urls []string) {
	if len(urls) == 0 {
		return
	}

	queued := append([]string(nil), urls...)
	go func() {
		ctx := context.Background()
		for _, u := range queued {
			res, err := s.resolver.Resolve(ctx, u)
			if err != nil || !res.NeedsTranscode {
				continue
			}
			s.pipeline.GetOrStart(ctx, u)
		}
	}()
}

func streamUrl(jobKey string) string {
	return "/stream/" + jobKey + "/" + transcode.ManifestName
}

func proxyUrl(sourceUrl string) string {
	return "/proxy?url=" + url.QueryEscape(sourceUrl)
}

// clearHandshake drops any in-progress launch handshake; an explicit
// authoritative action supersedes a pending rendezvous.
func (s *Service) clearHandshake(state *room.State) {
	state.SyncMode = room.SyncModeNone
	state.SyncTarget = 0
	state.SyncLaunchAt = 0
	state.SyncReadyIds = nil
	s.cancelLaunchTimer(state.Id)
}

func (s *Service) resolveMedia(ctx context.Context, state *room.State, input string) (resolver.Resolution, *Result) {
	res, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		if errors.Is(err, resolver.ErrInvalidURL) {
			r := s.reject(state, KindInvalidArgument, err.Error())
			return resolver.Resolution{}, &r
		}
		r := s.reject(state, KindUpstreamFailure, fmt.Sprintf("failed to resolve media: %v", err))
		return resolver.Resolution{}, &r
	}

	return res, nil
}
