package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpattn/sheetpattern/internal/auth"
	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/middleware"
	"github.com/rpattn/sheetpattern/internal/patternloader"
	"github.com/rpattn/sheetpattern/internal/repository"
	"github.com/rpattn/sheetpattern/internal/sheet"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

// Handler serves POST /patterns/{id}/apply.
type Handler struct {
	executor *Executor
	patterns repository.PatternRepository
	logger   *zap.Logger
}

func NewHTTPHandler(executor *Executor, patterns repository.PatternRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{executor: executor, patterns: patterns, logger: logger}
}

// Register mounts the replay route on r.
func (h *Handler) Register(r *mux.Router) {
	r.Handle("/patterns/{id}/apply", h).Methods(http.MethodPost)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	patternID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid pattern id: %v", err), http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	form, err := parseOptions(r, header.Filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		return
	}

	table, err := sheet.Parse(header.Filename, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if form.autoHeader {
		index := sheet.DetectHeaderRow(table.Rows)
		if index < 0 {
			http.Error(w, "no header row found in file", http.StatusBadRequest)
			return
		}
		form.opts.HeaderRowIndex = &index
	}

	pattern, err := h.loadPattern(r.Context(), patternID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := auth.EnforceWorkspaceScope(r.Context(), pattern.WorkspaceID); err != nil {
		// A pattern outside the caller's workspace is reported as missing.
		http.Error(w, repository.ErrPatternNotFound.Error(), http.StatusNotFound)
		return
	}

	result, report, err := h.executor.Apply(pattern, table, form.opts)
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload, err := sheet.Write(result, form.format)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(form.format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputName(header.Filename, form.format)))
	w.Header().Set("X-Steps-Applied", strconv.Itoa(report.Applied))
	w.Header().Set("X-Steps-Skipped", strconv.Itoa(len(report.Skipped)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) loadPattern(ctx context.Context, id uuid.UUID) (domain.Pattern, error) {
	if loader := middleware.PatternLoaderFromContext(ctx); loader != nil {
		return patternloader.Load(ctx, loader, id)
	}
	return h.patterns.GetByID(ctx, id)
}

// applyForm holds the parsed form fields of an apply request. With
// autoHeader set the header row is taken from the uploaded table.
type applyForm struct {
	opts       Options
	format     sheet.Format
	autoHeader bool
}

func parseOptions(r *http.Request, fileName string) (applyForm, error) {
	form := applyForm{format: sheet.FormatXLSX}

	if raw := strings.TrimSpace(r.FormValue("strict")); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			return applyForm{}, fmt.Errorf("invalid strict flag: %v", err)
		}
		form.opts.Strict = strict
	}

	if raw := strings.TrimSpace(r.FormValue("headerRowIndex")); strings.EqualFold(raw, "auto") {
		form.autoHeader = true
	} else if raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil || index < 0 {
			return applyForm{}, fmt.Errorf("invalid headerRowIndex %q", raw)
		}
		form.opts.HeaderRowIndex = &index
	}

	if raw := strings.ToLower(strings.TrimSpace(r.FormValue("format"))); raw != "" {
		form.format = sheet.Format(raw)
		if form.format != sheet.FormatCSV && form.format != sheet.FormatXLSX {
			return applyForm{}, fmt.Errorf("%w: %s", sheet.ErrUnsupportedFormat, raw)
		}
	} else if _, err := sheet.FormatFromFileName(fileName); err != nil {
		return applyForm{}, err
	}
	return form, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrPatternNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrPreconditionFailed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidSteps):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("replay failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func contentType(format sheet.Format) string {
	if format == sheet.FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func outputName(fileName string, format sheet.Format) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" || base == "." {
		base = "sheet"
	}
	return base + "-replayed." + string(format)
}
