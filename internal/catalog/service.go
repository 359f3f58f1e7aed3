package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/sheetpattern/internal/auth"
	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/repository"
	"github.com/rpattn/sheetpattern/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidPattern = errors.New("invalid pattern")

// Service manages stored patterns within a workspace scope.
type Service struct {
	patterns  repository.PatternRepository
	validator *validator.StepValidator
	logger    *zap.Logger
}

func NewService(patterns repository.PatternRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		patterns:  patterns,
		validator: &validator.StepValidator{AllowNegativeIndices: true},
		logger:    logger,
	}
}

// List returns a page of the workspace's patterns, newest first.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]domain.Pattern, error) {
	if err := auth.EnforceWorkspaceScope(ctx, workspaceID); err != nil {
		return nil, err
	}
	return s.patterns.ListByWorkspace(ctx, workspaceID, limit, offset)
}

// Get returns a pattern the caller may see. Patterns outside the caller's
// scope are reported as not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID, load func(context.Context, uuid.UUID) (domain.Pattern, error)) (domain.Pattern, error) {
	if load == nil {
		load = s.patterns.GetByID
	}
	pattern, err := load(ctx, id)
	if err != nil {
		return domain.Pattern{}, err
	}
	if err := auth.EnforceWorkspaceScope(ctx, pattern.WorkspaceID); err != nil {
		return domain.Pattern{}, fmt.Errorf("%w: %s", repository.ErrPatternNotFound, id)
	}
	return pattern, nil
}

// CreateRequest imports a pattern recorded elsewhere.
type CreateRequest struct {
	WorkspaceID    uuid.UUID
	Name           string
	Description    string
	HeaderRowIndex int
	Steps          []domain.PatternStep
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Pattern, error) {
	if err := auth.EnforceWorkspaceScope(ctx, req.WorkspaceID); err != nil {
		return domain.Pattern{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Pattern{}, fmt.Errorf("%w: name is required", ErrInvalidPattern)
	}
	if req.HeaderRowIndex < 0 {
		return domain.Pattern{}, fmt.Errorf("%w: header row index must not be negative", ErrInvalidPattern)
	}
	if err := s.validator.Validate(req.Steps).Err(); err != nil {
		return domain.Pattern{}, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	created, err := s.patterns.Create(ctx, domain.NewPattern(req.WorkspaceID, name, strings.TrimSpace(req.Description), req.HeaderRowIndex, req.Steps))
	if err != nil {
		return domain.Pattern{}, err
	}
	s.logger.Info("pattern imported", zap.String("pattern", created.ID.String()), zap.Int("steps", len(created.Steps)))
	return created, nil
}

// Delete removes a pattern the caller may see.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id, nil); err != nil {
		return err
	}
	if err := s.patterns.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("pattern deleted", zap.String("pattern", id.String()))
	return nil
}
