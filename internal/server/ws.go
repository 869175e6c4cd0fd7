package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"estate-assistant-backend/internal/assistant"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsBuffer     = 32
)

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return s.cfg.AllowedOrigin == "*" || origin == "" || origin == s.cfg.AllowedOrigin
}

// handleWebSocket streams session, visibility, typing and navigation events
// of an existing conversation. The session must already exist: cookies cannot
// be set once the connection is upgraded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	if sid == "" {
		s.writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	conv, ok := s.convs.Lookup(sid)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		s.log.WithError(err).WithField("session", sid).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	log := s.log.WithField("session", sid)

	events := make(chan assistant.Event, wsBuffer)
	unsubscribe := conv.Subscribe(func(e assistant.Event) {
		select {
		case events <- e:
		default:
			log.WithField("event", e.Kind).Warn("websocket client too slow, event dropped")
		}
	})
	defer unsubscribe()

	snap := conv.Session()
	initial := assistant.Event{Kind: assistant.EventSession, Session: &snap, Visible: conv.Visible(), Typing: conv.Typing()}
	if err := writeEvent(conn, initial); err != nil {
		return
	}

	// The reader only watches for the client going away.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			log.Debug("websocket client disconnected")
			return
		case e := <-events:
			if err := writeEvent(conn, e); err != nil {
				log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, e assistant.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(e)
}
