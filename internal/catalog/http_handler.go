package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/sheetpattern/internal/auth"
	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/middleware"
	"github.com/rpattn/sheetpattern/internal/patternloader"
	"github.com/rpattn/sheetpattern/internal/repository"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHTTPHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the catalog routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patterns", h.list).Methods(http.MethodGet)
	r.HandleFunc("/patterns", h.create).Methods(http.MethodPost)
	r.HandleFunc("/patterns/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/patterns/{id}", h.delete).Methods(http.MethodDelete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	workspaceID, ok := auth.WorkspaceIDFromContext(r.Context())
	if raw := strings.TrimSpace(query.Get("workspaceId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid workspace id: %v", err), http.StatusBadRequest)
			return
		}
		workspaceID, ok = id, true
	}
	if !ok {
		http.Error(w, "workspaceId is required", http.StatusBadRequest)
		return
	}

	limit, err := intParam(query.Get("limit"), 50)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid limit: %v", err), http.StatusBadRequest)
		return
	}
	offset, err := intParam(query.Get("offset"), 0)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid offset: %v", err), http.StatusBadRequest)
		return
	}

	patterns, err := h.service.List(r.Context(), workspaceID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patterns)
}

type createPayload struct {
	WorkspaceID    string          `json:"workspaceId"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	HeaderRowIndex int             `json:"headerRowIndex"`
	Steps          json.RawMessage `json:"steps"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	req := CreateRequest{Name: payload.Name, Description: payload.Description, HeaderRowIndex: payload.HeaderRowIndex}
	req.WorkspaceID, _ = auth.WorkspaceIDFromContext(r.Context())
	if raw := strings.TrimSpace(payload.WorkspaceID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid workspace id: %v", err), http.StatusBadRequest)
			return
		}
		req.WorkspaceID = id
	}

	steps, err := domain.PatternStepsFromJSON(payload.Steps)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid steps: %v", err), http.StatusBadRequest)
		return
	}
	req.Steps = steps

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid pattern id: %v", err), http.StatusBadRequest)
		return
	}

	var load func(context.Context, uuid.UUID) (domain.Pattern, error)
	if loader := middleware.PatternLoaderFromContext(r.Context()); loader != nil {
		load = func(ctx context.Context, id uuid.UUID) (domain.Pattern, error) {
			return patternloader.Load(ctx, loader, id)
		}
	}

	pattern, err := h.service.Get(r.Context(), id, load)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pattern)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid pattern id: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrPatternNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, auth.ErrWorkspaceScope):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidPattern), errors.Is(err, auth.ErrWorkspaceRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("catalog request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
