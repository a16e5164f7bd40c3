package controller

import "context"

type contextKey int

const (
	roomIdCtxKey contextKey = iota
	userIdCtxKey
)

func (c *controller) getRoomIdFromCtx(ctx context.Context) string {
	roomId, ok := ctx.Value(roomIdCtxKey).(string)
	if !ok {
		return ""
	}

	return roomId
}

func (c *controller) getUserIdFromCtx(ctx context.Context) string {
	userId, ok := ctx.Value(userIdCtxKey).(string)
	if !ok {
		return ""
	}

	return userId
}
