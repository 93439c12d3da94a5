package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/logger"
	"github.com/safespace/safespace-server/internal/notification"
	"github.com/safespace/safespace-server/internal/service/chat"
)

const (
	// writeWait bounds a single snapshot write to the socket.
	writeWait = 10 * time.Second
	// pongWait is how long the connection may stay silent before it is
	// considered dead.
	pongWait = 60 * time.Second
	// pingPeriod is the keepalive interval. Must be below pongWait.
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// subscribeStatus upgrades the connection and streams live-status snapshots
// until the subscriber disconnects. The session token travels as a query
// parameter because browsers cannot set headers on an upgrade request.
func (s *Server) subscribeStatus(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		renderError(w, r, http.StatusUnauthorized, "token query parameter required")

		return
	}

	session, err := s.auth.Resolve(r.Context(), token)
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	schoolID := chi.URLParam(r, "schoolID")
	if session.Role != domain.RoleAdmin || session.SchoolID != schoolID {
		renderError(w, r, http.StatusForbidden, "admin session for this school required")

		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf(r.Context(), "Websocket upgrade failed: %v", err)

		return
	}

	sub := s.hub.Subscribe(schoolID)

	// Bind the school to the logger for everything this subscription emits.
	ctx := logger.WithKV(r.Context(), "school_id", schoolID)

	logger.InfoKV(ctx, "Status subscription opened", "principal", session.ID)

	// Detect disconnects; inbound frames carry no meaning on this stream.
	go func() {
		defer s.hub.Unsubscribe(sub)

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go s.writeStatus(ctx, conn, schoolID, sub)
}

// subscribeMessages upgrades the connection and streams the school's chat
// feed. Like the poll endpoint, the feed is open: rooms carry no access
// control beyond school discovery.
func (s *Server) subscribeMessages(w http.ResponseWriter, r *http.Request) {
	schoolID := chi.URLParam(r, "schoolID")

	if _, err := s.registry.Get(r.Context(), schoolID); err != nil {
		renderDomainError(w, r, err)

		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf(r.Context(), "Websocket upgrade failed: %v", err)

		return
	}

	sub := s.chat.Subscribe(schoolID)

	ctx := logger.WithKV(r.Context(), "school_id", schoolID)

	logger.InfoKV(ctx, "Message subscription opened")

	go func() {
		defer s.chat.Unsubscribe(sub)

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go s.writeMessages(ctx, conn, schoolID, sub)
}

// writeMessages pumps the chat feed to the socket, starting with the existing
// backlog. Messages already sent from the backlog are skipped by sequence, so
// the stream never duplicates or reorders.
func (s *Server) writeMessages(ctx context.Context, conn *websocket.Conn, schoolID string, sub *chat.Subscription) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	var lastSent uint64

	write := func(message *domain.Message) bool {
		if message.Sequence <= lastSent {
			return true
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

		if conn.WriteJSON(message) != nil {
			return false
		}

		lastSent = message.Sequence

		return true
	}

	backlog, err := s.chat.List(ctx, schoolID, 0)
	if err != nil {
		return
	}

	for _, message := range backlog {
		if !write(message) {
			return
		}
	}

	for {
		select {
		case message, ok := <-sub.C:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if !write(message) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeStatus pumps snapshots from the hub to the socket, starting with the
// current state so the dashboard renders immediately.
func (s *Server) writeStatus(ctx context.Context, conn *websocket.Conn, schoolID string, sub *notification.Subscription) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(snapshot []*domain.AlertState) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

		return conn.WriteJSON(toStatusResponse(schoolID, snapshot)) == nil
	}

	if !write(s.alerts.LiveStatus(ctx, schoolID)) {
		return
	}

	for {
		select {
		case snapshot, ok := <-sub.C:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if !write(snapshot) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
