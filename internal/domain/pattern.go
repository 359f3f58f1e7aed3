package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pattern is a stored, ordered sequence of steps that can be replayed against
// another spreadsheet.
type Pattern struct {
	ID             uuid.UUID     `json:"id"`
	WorkspaceID    uuid.UUID     `json:"workspace_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	HeaderRowIndex int           `json:"header_row_index"`
	Steps          []PatternStep `json:"steps"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewPattern creates a new pattern with immutable pattern
func NewPattern(workspaceID uuid.UUID, name, description string, headerRowIndex int, steps []PatternStep) Pattern {
	now := time.Now()
	return Pattern{
		ID:             uuid.New(),
		WorkspaceID:    workspaceID,
		Name:           name,
		Description:    description,
		HeaderRowIndex: headerRowIndex,
		Steps:          CloneSteps(steps),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// StructuralStepCount returns how many steps insert or delete rows or columns.
func (p Pattern) StructuralStepCount() int {
	count := 0
	for _, step := range p.Steps {
		if step.Type.IsStructural() {
			count++
		}
	}
	return count
}
