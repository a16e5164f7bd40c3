package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LFronza/CineLink-sub000/internal/repository/room"
)

const keyPrefix = "room:"

type repo struct {
	rc             *redis.Client
	expireDuration time.Duration
}

func NewRepo(rc *redis.Client, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
	}
}

func (r repo) getRoomKey(roomId string) string {
	return keyPrefix + roomId
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.State, error) {
	roomKey := r.getRoomKey(roomId)
	data, err := r.rc.Get(ctx, roomKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return room.State{}, room.ErrRoomNotFound
		}

		return room.State{}, fmt.Errorf("failed to get room: %w", err)
	}

	var state room.State
	if err := json.Unmarshal(data, &state); err != nil {
		return room.State{}, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return state, nil
}

func (r repo) UpsertRoom(ctx context.Context, state *room.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	roomKey := r.getRoomKey(state.Id)
	if err := r.rc.Set(ctx, roomKey, data, r.expireDuration).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) DeleteRoom(ctx context.Context, roomId string) error {
	res, err := r.rc.Del(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	if res == 0 {
		return room.ErrRoomNotFound
	}

	return nil
}

func (r repo) GetRoomIds(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.rc.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan rooms: %w", err)
	}

	return ids, nil
}
