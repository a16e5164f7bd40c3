package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LFronza/CineLink-sub000/pkg/ctxlogger"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
	"github.com/LFronza/CineLink-sub000/pkg/wsrouter"
)

func (c *controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", c.generateRequestId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r)
	})
}

func (c *controller) wsMessageMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateRequestId()))
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
		next(ctx, conn, payload)
	}
}
