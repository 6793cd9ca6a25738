package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const streamWriteWait = 10 * time.Second

// handleStream serves predictions over a WebSocket. Each text frame holds one
// PredictionRequest and is answered by one PredictionResponse or errorResponse
// frame, in order.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		g := s.metrics.StreamClients()
		g.Inc()
		defer g.Dec()
	}
	conn.SetReadLimit(maxBodyBytes)
	// clear the deadline inherited from the HTTP server
	_ = conn.SetReadDeadline(time.Time{})

	log.Debug().Str("remote", r.RemoteAddr).Msg("Stream client connected")

	ctx := r.Context()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Stream client disconnected unexpectedly")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var out interface{}
		var req PredictionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			out = errorResponse{Error: fmt.Sprintf("invalid request: %v", err)}
		} else if resp, err := s.predict(ctx, req); err != nil {
			var pe *predictError
			if errors.As(err, &pe) {
				out = pe.body
			} else {
				out = errorResponse{Error: err.Error(), RequestID: req.RequestID}
			}
		} else {
			out = resp
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			log.Error().Err(err).Msg("Failed to send message to WebSocket client")
			return
		}
	}
}
