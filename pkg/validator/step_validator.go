package validator

import (
	"fmt"
	"strings"

	"github.com/rpattn/sheetpattern/internal/domain"
)

// StepValidator checks that a step sequence honours the step shape contract
// shared between the recorder and replay.
type StepValidator struct {
	// AllowNegativeIndices keeps recorded-as-given negative indices valid. Replay
	// in strict mode turns it off.
	AllowNegativeIndices bool
}

// NewStepValidator creates a new step validator
func NewStepValidator() *StepValidator {
	return &StepValidator{}
}

// ValidationError represents a validation error
type ValidationError struct {
	StepIndex int    `json:"step_index"`
	StepID    string `json:"step_id,omitempty"`
	Message   string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %d (%s): %s", e.StepIndex, e.StepID, e.Message)
	}
	return fmt.Sprintf("step %d: %s", e.StepIndex, e.Message)
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// Err folds the result into a single error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	messages := make([]string, 0, len(r.Errors))
	for _, validationErr := range r.Errors {
		messages = append(messages, validationErr.Error())
	}
	return fmt.Errorf("invalid steps: %s", strings.Join(messages, "; "))
}

// Validate checks ids, types and the params block of every step.
func (v *StepValidator) Validate(steps []domain.PatternStep) ValidationResult {
	result := ValidationResult{
		IsValid: true,
		Errors:  []ValidationError{},
	}
	seen := make(map[string]int, len(steps))

	fail := func(idx int, step domain.PatternStep, format string, args ...any) {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{
			StepIndex: idx,
			StepID:    step.ID,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	for idx, step := range steps {
		if strings.TrimSpace(step.ID) == "" {
			fail(idx, step, "id is required")
		} else if first, dup := seen[step.ID]; dup {
			fail(idx, step, "id duplicates step %d", first)
		} else {
			seen[step.ID] = idx
		}

		if !step.Type.Valid() {
			fail(idx, step, "unknown type %q", step.Type)
			continue
		}
		if step.Params() == nil {
			fail(idx, step, "%s params are missing", step.Type)
			continue
		}

		for _, problem := range v.checkIndices(step) {
			fail(idx, step, "%s", problem)
		}
	}

	return result
}

func (v *StepValidator) checkIndices(step domain.PatternStep) []string {
	if v.AllowNegativeIndices {
		return nil
	}
	var problems []string
	check := func(name string, value int) {
		if value < 0 {
			problems = append(problems, fmt.Sprintf("%s %d is negative", name, value))
		}
	}

	switch step.Type {
	case domain.StepSetColumnName:
		check("column_index", step.ColumnName.ColumnIndex)
	case domain.StepSetCellValue:
		check("row_index", step.CellValue.RowIndex)
		check("column_index", step.CellValue.ColumnIndex)
	case domain.StepSetCellFormat:
		check("row_index", step.CellFormat.RowIndex)
		check("column_index", step.CellFormat.ColumnIndex)
	case domain.StepInsertRow, domain.StepDeleteRow:
		check("row_index", step.Structure.Index)
	case domain.StepInsertColumn, domain.StepDeleteColumn:
		check("column_index", step.Structure.Index)
	}
	return problems
}
