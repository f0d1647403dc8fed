package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vedran77/veil/internal/realtime"
	"github.com/vedran77/veil/internal/transport/http/middleware"
	"nhooyr.io/websocket"
)

// Handler upgrades GET /ws requests and serves them on the hub.
// Auth is done via ?token=xxx since browsers cannot set headers on the upgrade.
type Handler struct {
	hub            *realtime.Hub
	jwtSecret      string
	allowedOrigins []string
	logger         *slog.Logger
}

func NewHandler(hub *realtime.Hub, jwtSecret string, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:            hub,
		jwtSecret:      jwtSecret,
		allowedOrigins: allowedOrigins,
		logger:         logger.With("component", "ws"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := middleware.ParseUserID(h.jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		h.logger.Warn("ws accept failed", "error", err, "ip", middleware.RealIP(r))
		return
	}

	// The connection outlives the upgrade request.
	ctx := context.WithoutCancel(r.Context())
	NewClient(h.hub, conn, h.logger).Run(ctx, userID)
}
