package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gitnet/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The server binds to localhost and guards the API with a token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams session updates of one repository. The current
// layout is sent first, then every update until the client leaves, the
// session closes or the server shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed",
			"repoPath", root,
			"error", err.Error(),
		)
		return
	}
	defer conn.Close()

	updates, cancel := s.sessions.Subscribe(root)
	defer cancel()

	s.logger.Info("WebSocket client connected",
		"repoPath", root,
		"remoteAddr", r.RemoteAddr,
	)
	defer s.logger.Info("WebSocket client disconnected", "repoPath", root)

	if u, ok := s.sessions.Current(root); ok {
		if err := writeUpdate(conn, u); err != nil {
			return
		}
	}

	// The read loop only exists to process control frames and notice the
	// client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-s.closing:
			closeConn(conn, websocket.CloseGoingAway, "server shutting down")
			return
		case u, ok := <-updates:
			if !ok {
				closeConn(conn, websocket.CloseNormalClosure, "session closed")
				return
			}
			if err := writeUpdate(conn, u); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeUpdate(conn *websocket.Conn, u session.Update) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(u)
}

func closeConn(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
