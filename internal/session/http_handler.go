package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rpattn/sheetpattern/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxEventBytes = 1 << 20

// Handler exposes recording sessions over REST and a websocket stream.
type Handler struct {
	service *Service
	stream  *StreamHandler
	logger  *zap.Logger
}

// NewHTTPHandler wraps the service. allowedOrigins limits websocket upgrades;
// an empty list accepts same-origin requests only.
func NewHTTPHandler(service *Service, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		stream:  NewStreamHandler(service, allowedOrigins, logger),
		logger:  logger,
	}
}

// Register mounts the session routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/sessions/{id}/events", h.recordEvent).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/finish", h.finish).Methods(http.MethodPost)
	r.Handle("/sessions/{id}/stream", h.stream).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.snapshot).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.discard).Methods(http.MethodDelete)
}

func (h *Handler) recordEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.DecodeEvent(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Record(r.Context(), mux.Vars(r)["id"], event)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type finishBody struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request) {
	var body finishBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	req := FinishRequest{
		SessionID:   mux.Vars(r)["id"],
		Name:        body.Name,
		Description: body.Description,
	}
	if raw := strings.TrimSpace(body.WorkspaceID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid workspace id: %v", err), http.StatusBadRequest)
			return
		}
		req.WorkspaceID = id
	}

	pattern, err := h.service.Finish(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pattern)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("session request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionIDRequired), errors.Is(err, ErrInvalidPattern), errors.Is(err, auth.ErrWorkspaceRequired):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrWorkspaceScope):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
