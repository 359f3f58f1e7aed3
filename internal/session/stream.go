package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame is one server-to-client websocket message.
type Frame struct {
	Type    string        `json:"type"`
	Outcome *RecordResult `json:"outcome,omitempty"`
	Error   string        `json:"error,omitempty"`
}

const (
	FrameOutcome = "outcome"
	FrameError   = "error"
)

// StreamHandler upgrades to a websocket and records every inbound event frame.
// Frames on one connection are handled in order.
type StreamHandler struct {
	service  *Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewStreamHandler(service *Service, allowedOrigins []string, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(mux.Vars(r)["id"])
	if sessionID == "" {
		http.Error(w, ErrSessionIDRequired.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", zap.String("session", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxEventBytes)

	h.logger.Info("stream opened", zap.String("session", sessionID))
	h.serve(r.Context(), conn, sessionID)
	h.logger.Info("stream closed", zap.String("session", sessionID))
}

func (h *StreamHandler) serve(ctx context.Context, conn *websocket.Conn, sessionID string) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("stream read ended", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			if err := conn.WriteJSON(Frame{Type: FrameError, Error: "expected a text frame"}); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(h.handleFrame(ctx, sessionID, payload)); err != nil {
			h.logger.Warn("stream write failed", zap.String("session", sessionID), zap.Error(err))
			return
		}
	}
}

func (h *StreamHandler) handleFrame(ctx context.Context, sessionID string, payload []byte) Frame {
	event, err := h.service.DecodeEvent(bytes.NewReader(payload))
	if err != nil {
		return Frame{Type: FrameError, Error: err.Error()}
	}

	result, err := h.service.Record(ctx, sessionID, event)
	if err != nil {
		if !errors.Is(err, ErrSessionIDRequired) {
			h.logger.Error("stream record failed", zap.String("session", sessionID), zap.Error(err))
		}
		return Frame{Type: FrameError, Error: err.Error()}
	}
	return Frame{Type: FrameOutcome, Outcome: &result}
}

// originChecker accepts same-origin requests, requests without an Origin
// header, and any origin in allowed ("*" accepts all).
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(strings.TrimSpace(origin), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
