package inmemory

import (
	"context"
	"sync"

	"github.com/LFronza/CineLink-sub000/internal/repository/room"
)

type repo struct {
	rooms map[string]room.State
	mu    sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		rooms: make(map[string]room.State),
	}
}

func (r *repo) GetRoom(_ context.Context, roomId string) (room.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return room.State{}, room.ErrRoomNotFound
	}

	return state.Clone(), nil
}

func (r *repo) UpsertRoom(_ context.Context, state *room.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[state.Id] = state.Clone()

	return nil
}

func (r *repo) DeleteRoom(_ context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomId]; !ok {
		return room.ErrRoomNotFound
	}

	delete(r.rooms, roomId)

	return nil
}

func (r *repo) GetRoomIds(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}

	return ids, nil
}
