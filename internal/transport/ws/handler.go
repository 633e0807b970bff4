package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/service"
	"github.com/vedran77/careteam/internal/transport/http/middleware"
	"nhooyr.io/websocket"
)

// SessionResolver maps an authenticated identity onto its profile.
type SessionResolver interface {
	ResolveSession(ctx context.Context, authIdentityID uuid.UUID) (domain.Session, error)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
// originPatterns restricts browser origins; empty allows any.
func ServeWS(hub *Hub, jwtSecret string, sessions SessionResolver, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		authID, err := middleware.ParseToken(jwtSecret, tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		sess, err := sessions.ResolveSession(r.Context(), authID)
		if err != nil {
			if errors.Is(err, service.ErrProfileNotFound) {
				http.Error(w, "profile required", http.StatusForbidden)
				return
			}
			logger.Error("ws session lookup failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		// server read/write timeouts would otherwise outlive the upgrade
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		opts := &websocket.AcceptOptions{OriginPatterns: originPatterns}
		if len(originPatterns) == 0 {
			opts.InsecureSkipVerify = true
		}
		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			logger.Warn("ws accept error", "error", err)
			return
		}

		client := NewClient(hub, conn, sess)
		if !hub.add(client) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
