package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/middleware"
	"github.com/rpattn/sheetpattern/internal/repository"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type memoryRepository struct {
	patterns map[uuid.UUID]domain.Pattern
	order    []uuid.UUID
}

func newMemoryRepository(patterns ...domain.Pattern) *memoryRepository {
	repo := &memoryRepository{patterns: map[uuid.UUID]domain.Pattern{}}
	for _, p := range patterns {
		repo.patterns[p.ID] = p
		repo.order = append(repo.order, p.ID)
	}
	return repo
}

func (m *memoryRepository) Create(ctx context.Context, pattern domain.Pattern) (domain.Pattern, error) {
	m.patterns[pattern.ID] = pattern
	m.order = append(m.order, pattern.ID)
	return pattern, nil
}

func (m *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Pattern, error) {
	p, ok := m.patterns[id]
	if !ok {
		return domain.Pattern{}, fmt.Errorf("%w: %s", repository.ErrPatternNotFound, id)
	}
	return p, nil
}

func (m *memoryRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Pattern, error) {
	out := []domain.Pattern{}
	for _, id := range ids {
		if p, ok := m.patterns[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int, offset int) ([]domain.Pattern, error) {
	out := []domain.Pattern{}
	for _, id := range m.order {
		if p, ok := m.patterns[id]; ok && p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.patterns[id]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrPatternNotFound, id)
	}
	delete(m.patterns, id)
	return nil
}

func newCatalogRouter(repo *memoryRepository) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.WorkspaceMiddleware, middleware.DataLoaderMiddleware(repo))
	NewHTTPHandler(NewService(repo, nil), nil).Register(router)
	return router
}

func serve(router http.Handler, method, path, body string, workspace uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if workspace != uuid.Nil {
		req.Header.Set(middleware.WorkspaceHeader, workspace.String())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCatalogListGetDelete(t *testing.T) {
	workspace := uuid.New()
	first := domain.NewPattern(workspace, "first", "", 0, []domain.PatternStep{domain.NewColumnNameStep("s1", 0, "a", "b", 1)})
	second := domain.NewPattern(workspace, "second", "", 0, nil)
	foreign := domain.NewPattern(uuid.New(), "foreign", "", 0, nil)
	router := newCatalogRouter(newMemoryRepository(first, second, foreign))

	rec := serve(router, http.MethodGet, "/patterns?limit=1&offset=1", "", workspace)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var listed []domain.Pattern
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "second" {
		t.Fatalf("unexpected page %+v", listed)
	}

	rec = serve(router, http.MethodGet, "/patterns/"+first.ID.String(), "", workspace)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"SET_COLUMN_NAME"`) {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/patterns/"+foreign.ID.String(), "", workspace)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected foreign pattern to be hidden, got %d", rec.Code)
	}
	rec = serve(router, http.MethodDelete, "/patterns/"+foreign.ID.String(), "", workspace)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected foreign delete to be refused, got %d", rec.Code)
	}

	rec = serve(router, http.MethodDelete, "/patterns/"+first.ID.String(), "", workspace)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(router, http.MethodGet, "/patterns/"+first.ID.String(), "", workspace)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted pattern to be gone, got %d", rec.Code)
	}
}

func TestCatalogListRequiresWorkspace(t *testing.T) {
	router := newCatalogRouter(newMemoryRepository())

	if rec := serve(router, http.MethodGet, "/patterns", "", uuid.Nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without workspace, got %d", rec.Code)
	}
	other := uuid.New().String()
	if rec := serve(router, http.MethodGet, "/patterns?workspaceId="+other, "", uuid.New()); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign workspace, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/patterns?limit=abc", "", uuid.New()); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestCatalogCreate(t *testing.T) {
	repo := newMemoryRepository()
	router := newCatalogRouter(repo)
	workspace := uuid.New()

	body := `{"name":"import","headerRowIndex":1,"steps":[
		{"id":"a","type":"SET_COLUMN_NAME","params":{"column_index":0,"from_header":"x","to_header":"y"},"timestamp":5},
		{"id":"b","type":"INSERT_ROW","params":{"row_index":2},"timestamp":6}
	]}`
	rec := serve(router, http.MethodPost, "/patterns", body, workspace)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created domain.Pattern
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.WorkspaceID != workspace || created.HeaderRowIndex != 1 || len(created.Steps) != 2 {
		t.Fatalf("unexpected pattern %+v", created)
	}
	if created.Steps[1].Structure == nil || created.Steps[1].Structure.Index != 2 {
		t.Fatalf("structural params lost: %+v", created.Steps[1])
	}

	duplicate := `{"name":"dup","steps":[
		{"id":"a","type":"INSERT_ROW","params":{"row_index":1},"timestamp":1},
		{"id":"a","type":"INSERT_ROW","params":{"row_index":2},"timestamp":2}
	]}`
	if rec := serve(router, http.MethodPost, "/patterns", duplicate, workspace); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate ids, got %d", rec.Code)
	}
	unknown := `{"name":"bad","steps":[{"id":"a","type":"MERGE_CELLS","params":{},"timestamp":1}]}`
	if rec := serve(router, http.MethodPost, "/patterns", unknown, workspace); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown step type, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/patterns", `{"name":" "}`, workspace); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/patterns", `{"name":"x","steps":[]}`, uuid.Nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a workspace, got %d: %s", rec.Code, rec.Body.String())
	}
}
