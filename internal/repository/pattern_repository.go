package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpattn/sheetpattern/internal/db"
	"github.com/rpattn/sheetpattern/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const patternColumns = `id, workspace_id, name, description, header_row_index, steps, created_at, updated_at`

type patternRepository struct {
	db db.DBTX
}

// NewPatternRepository wires a repository backed by a pgx pool or transaction.
func NewPatternRepository(conn db.DBTX) PatternRepository {
	return &patternRepository{db: conn}
}

func (r *patternRepository) Create(ctx context.Context, pattern domain.Pattern) (domain.Pattern, error) {
	if r.db == nil {
		return domain.Pattern{}, fmt.Errorf("pattern repository not initialized")
	}
	if pattern.ID == uuid.Nil {
		pattern.ID = uuid.New()
	}

	stepsJSON, err := domain.PatternStepsToJSON(pattern.Steps)
	if err != nil {
		return domain.Pattern{}, fmt.Errorf("marshal steps: %w", err)
	}

	row := r.db.QueryRow(
		ctx,
		`INSERT INTO patterns (id, workspace_id, name, description, header_row_index, steps)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+patternColumns,
		pattern.ID,
		pattern.WorkspaceID,
		pattern.Name,
		pgtype.Text{String: pattern.Description, Valid: pattern.Description != ""},
		pattern.HeaderRowIndex,
		stepsJSON,
	)

	created, err := scanPattern(row)
	if err != nil {
		return domain.Pattern{}, fmt.Errorf("failed to create pattern: %w", err)
	}
	return created, nil
}

func (r *patternRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Pattern, error) {
	if r.db == nil {
		return domain.Pattern{}, fmt.Errorf("pattern repository not initialized")
	}

	row := r.db.QueryRow(ctx, `SELECT `+patternColumns+` FROM patterns WHERE id = $1`, id)
	pattern, err := scanPattern(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pattern{}, fmt.Errorf("%w: %s", ErrPatternNotFound, id)
		}
		return domain.Pattern{}, fmt.Errorf("failed to get pattern: %w", err)
	}
	return pattern, nil
}

func (r *patternRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Pattern, error) {
	if r.db == nil {
		return nil, fmt.Errorf("pattern repository not initialized")
	}
	if len(ids) == 0 {
		return []domain.Pattern{}, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+patternColumns+` FROM patterns WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get patterns: %w", err)
	}
	return collectPatterns(rows)
}

func (r *patternRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int, offset int) ([]domain.Pattern, error) {
	if r.db == nil {
		return nil, fmt.Errorf("pattern repository not initialized")
	}

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+patternColumns+`
		 FROM patterns
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		workspaceID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	return collectPatterns(rows)
}

func (r *patternRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return fmt.Errorf("pattern repository not initialized")
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM patterns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrPatternNotFound, id)
	}
	return nil
}

func collectPatterns(rows pgx.Rows) ([]domain.Pattern, error) {
	defer rows.Close()

	patterns := []domain.Pattern{}
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}
	return patterns, nil
}

func scanPattern(row pgx.Row) (domain.Pattern, error) {
	var (
		pattern     domain.Pattern
		description pgtype.Text
		steps       []byte
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(
		&pattern.ID,
		&pattern.WorkspaceID,
		&pattern.Name,
		&description,
		&pattern.HeaderRowIndex,
		&steps,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Pattern{}, err
	}

	decoded, err := domain.PatternStepsFromJSON(steps)
	if err != nil {
		return domain.Pattern{}, fmt.Errorf("unmarshal steps: %w", err)
	}

	if description.Valid {
		pattern.Description = description.String
	}
	pattern.Steps = decoded
	pattern.CreatedAt = createdAt
	pattern.UpdatedAt = updatedAt
	return pattern, nil
}
