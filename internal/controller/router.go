package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LFronza/CineLink-sub000/internal/service/room"
	"github.com/LFronza/CineLink-sub000/pkg/rest"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

const maxMessageSize = 64 << 10

func (c *controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)

	r.Get("/healthz", c.serveHealth)
	r.HandleFunc("/ws/{room-id}", c.serveRoom)
	r.Get("/stream/{job-key}/{file}", c.serveStreamFile)
	r.Get("/proxy", c.serveProxy)

	return r
}

func (c *controller) serveHealth(w http.ResponseWriter, r *http.Request) {
	if err := rest.WriteJSON(w, http.StatusOK, rest.Envelope{"status": "ok"}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write health response", "error", err)
	}
}

func (c *controller) writeError(w http.ResponseWriter, status int, message string) {
	if err := rest.WriteJSON(w, status, rest.Envelope{"error": message}); err != nil {
		c.logger.Warn("failed to write error response", "error", err)
	}
}

// serveRoom joins the caller to the room and pumps typed messages until
// the connection drops. Identity is supplied by the caller and trusted
// as-is. The room join happens only after a successful upgrade and
// connection registration, so a failed handshake or a duplicate user id
// never leaves a participant behind without a connection.
func (c *controller) serveRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	userId := r.URL.Query().Get("user-id")
	if roomId == "" || userId == "" {
		c.writeError(w, http.StatusBadRequest, "room-id and user-id are required")
		return
	}

	wsc, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	wsc.SetReadLimit(maxMessageSize)
	conn := wsconn.New(wsc)

	if err := c.roomService.ConnectParticipant(r.Context(), &room.ConnectParticipantParams{
		Conn:     conn,
		SenderId: userId,
		RoomId:   roomId,
	}); err != nil {
		c.writeRejection(conn, room.KindInvalidArgument, "user is already connected")
		conn.Close()
		return
	}

	result, err := c.roomService.GetRoomState(r.Context(), &room.GetRoomStateParams{
		SenderId: userId,
		RoomId:   roomId,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to join room", "error", err)
		c.disconnect(r.Context(), conn, userId, roomId)
		conn.Close()
		return
	}
	if !result.Accepted {
		c.writeRejection(conn, result.Kind, result.Message)
		c.disconnect(r.Context(), conn, userId, roomId)
		conn.Close()
		return
	}

	if err := conn.WriteJSON(&Output{Type: "joined_room", Payload: result.State}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write join message", "error", err)
	}

	if result.Update != nil {
		c.BroadcastUpdate(*result.Update)
	}

	ctx := context.WithValue(r.Context(), roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, userIdCtxKey, userId)

	if err := c.getWSRouter().ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(r.Context(), "connection closed", "error", err)
	}

	c.disconnect(r.Context(), conn, userId, roomId)
}

func (c *controller) disconnect(ctx context.Context, conn *wsconn.Conn, userId, roomId string) {
	result, err := c.roomService.DisconnectParticipant(ctx, &room.ConnectParticipantParams{
		Conn:     conn,
		SenderId: userId,
		RoomId:   roomId,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect participant", "error", err)
		return
	}

	if result.Accepted && result.Update != nil {
		c.BroadcastUpdate(*result.Update)
	}
}
