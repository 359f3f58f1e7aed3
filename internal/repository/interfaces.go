package repository

import (
	"context"
	"errors"

	"github.com/rpattn/sheetpattern/internal/domain"

	"github.com/google/uuid"
)

// ErrPatternNotFound is returned when no pattern matches the requested id.
var ErrPatternNotFound = errors.New("pattern not found")

// PatternRepository defines the interface for stored pattern operations
type PatternRepository interface {
	Create(ctx context.Context, pattern domain.Pattern) (domain.Pattern, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Pattern, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Pattern, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int, offset int) ([]domain.Pattern, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
