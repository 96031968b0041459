package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/engine"
)

// handleWebSocket reads one Input per text frame and answers each with an
// Envelope. Frames are handled in order; a bad frame gets an error reply and
// the connection stays open.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	s.log.Debug("websocket connected", "remote", r.RemoteAddr)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.log.Debug("websocket read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var in core.Input
		if err := json.Unmarshal(data, &in); err != nil || in == nil {
			reply := map[string]any{"status": engine.StatusError, "message": "frame must be a JSON object"}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
			continue
		}

		env := s.engine.Execute(ctx, in)
		if err := conn.WriteJSON(env); err != nil {
			s.log.Debug("websocket write failed", "error", err)
			return
		}
	}
}
