package validator

import (
	"strings"
	"testing"

	"github.com/rpattn/sheetpattern/internal/domain"
)

func TestStepValidatorAcceptsRecordedSteps(t *testing.T) {
	v := NewStepValidator()

	result := v.Validate([]domain.PatternStep{
		domain.NewColumnNameStep("a", 0, "Old", "New", 1),
		domain.NewCellValueStep("b", 1, 0, "", "x", 2),
		domain.NewStructureStep("c", domain.StepInsertRow, 2, 3),
		domain.NewCellFormatStep("d", 1, 0, "0.00", 4),
	})
	if !result.IsValid {
		t.Fatalf("expected valid steps, got errors: %+v", result.Errors)
	}
	if result.Err() != nil {
		t.Fatalf("expected nil error for valid result")
	}
}

func TestStepValidatorReportsShapeProblems(t *testing.T) {
	v := NewStepValidator()

	missingParams := domain.PatternStep{ID: "p", Type: domain.StepSetColumnName}
	result := v.Validate([]domain.PatternStep{
		domain.NewColumnNameStep("", 0, "a", "b", 1),
		domain.NewColumnNameStep("dup", 0, "a", "b", 1),
		domain.NewColumnNameStep("dup", 1, "a", "b", 1),
		{ID: "weird", Type: "MERGE"},
		missingParams,
		domain.NewStructureStep("neg", domain.StepDeleteColumn, -1, 1),
	})

	if result.IsValid {
		t.Fatalf("expected invalid result")
	}
	if len(result.Errors) != 5 {
		t.Fatalf("expected 5 errors, got %d: %+v", len(result.Errors), result.Errors)
	}

	message := result.Err().Error()
	for _, fragment := range []string{"id is required", "duplicates step 1", "unknown type", "params are missing", "column_index -1 is negative"} {
		if !strings.Contains(message, fragment) {
			t.Errorf("error %q missing fragment %q", message, fragment)
		}
	}
}

func TestStepValidatorAllowNegativeIndices(t *testing.T) {
	v := &StepValidator{AllowNegativeIndices: true}

	result := v.Validate([]domain.PatternStep{domain.NewColumnNameStep("a", -2, "a", "b", 1)})
	if !result.IsValid {
		t.Fatalf("negative indices should be accepted: %+v", result.Errors)
	}
}
