package replay

import (
	"errors"
	"testing"

	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/sheet"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func sampleTable() sheet.Table {
	return sheet.NewTable([][]string{
		{"Name", "Qty", "Notes"},
		{"apple", "3", "fresh"},
		{"pear", "5", ""},
	})
}

func TestApplyRenamesEditsAndShifts(t *testing.T) {
	pattern := domain.NewPattern(uuid.New(), "cleanup", "", 0, []domain.PatternStep{
		domain.NewColumnNameStep("s1", 1, "Qty", "Quantity", 1),
		domain.NewCellValueStep("s2", 2, 1, "5", "6", 2),
		domain.NewStructureStep("s3", domain.StepDeleteColumn, 2, 3),
		domain.NewStructureStep("s4", domain.StepInsertRow, 1, 4),
		domain.NewCellFormatStep("s5", 2, 1, "0.00", 5),
	})
	input := sampleTable()

	out, report, err := NewExecutor(nil).Apply(pattern, input, Options{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	want := [][]string{
		{"Name", "Quantity"},
		{"", ""},
		{"apple", "3"},
		{"pear", "6"},
	}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Fatalf("rows differ (-want +got):\n%s", diff)
	}
	if out.Formats[sheet.Cell{Row: 2, Column: 1}] != "0.00" {
		t.Fatalf("expected number format on (2,1), got %v", out.Formats)
	}
	if report.Applied != 5 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if input.Rows[0][1] != "Qty" || input.Width() != 3 {
		t.Fatalf("input table was modified: %v", input.Rows)
	}
}

func TestApplySkipsOutOfRangeSteps(t *testing.T) {
	pattern := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewColumnNameStep("far", 9, "X", "Y", 1),
		domain.NewStructureStep("gone", domain.StepDeleteRow, 40, 2),
		domain.NewColumnNameStep("neg", -1, "X", "Y", 3),
		domain.NewColumnNameStep("ok", 0, "Name", "Item", 4),
	})

	out, report, err := NewExecutor(nil).Apply(pattern, sampleTable(), Options{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Applied != 1 || len(report.Skipped) != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Skipped[0].StepID != "far" || report.Skipped[1].Type != domain.StepDeleteRow {
		t.Fatalf("unexpected skipped entries %+v", report.Skipped)
	}
	if out.Rows[0][0] != "Item" {
		t.Fatalf("expected later steps to still apply, got %v", out.Rows[0])
	}
}

func TestApplySkipsColumnInsertOnEmptySheet(t *testing.T) {
	pattern := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewStructureStep("col", domain.StepInsertColumn, 0, 1),
	})

	_, report, err := NewExecutor(nil).Apply(pattern, sheet.Table{}, Options{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Applied != 0 || len(report.Skipped) != 1 || report.Skipped[0].StepID != "col" {
		t.Fatalf("expected the insert to be skipped, got %+v", report)
	}
}

func TestApplyNonStrictIgnoresFromValues(t *testing.T) {
	pattern := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewColumnNameStep("s1", 0, "Something Else", "Item", 1),
	})

	out, _, err := NewExecutor(nil).Apply(pattern, sampleTable(), Options{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Rows[0][0] != "Item" {
		t.Fatalf("non-strict replay should overwrite, got %q", out.Rows[0][0])
	}
}

func TestApplyStrictChecksPreconditions(t *testing.T) {
	executor := NewExecutor(nil)

	mismatch := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewColumnNameStep("s1", 0, "Title", "Item", 1),
	})
	if _, _, err := executor.Apply(mismatch, sampleTable(), Options{Strict: true}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}

	outOfRange := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewStructureStep("s1", domain.StepDeleteColumn, 7, 1),
	})
	if _, _, err := executor.Apply(outOfRange, sampleTable(), Options{Strict: true}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}

	negative := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewCellValueStep("s1", -2, 0, "", "x", 1),
	})
	if _, _, err := executor.Apply(negative, sampleTable(), Options{Strict: true}); !errors.Is(err, ErrInvalidSteps) {
		t.Fatalf("expected ErrInvalidSteps, got %v", err)
	}

	matching := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewColumnNameStep("s1", 0, "Name", "Item", 1),
		domain.NewCellValueStep("s2", 1, 2, "fresh", "ripe", 2),
	})
	out, report, err := executor.Apply(matching, sampleTable(), Options{Strict: true})
	if err != nil {
		t.Fatalf("strict apply: %v", err)
	}
	if report.Applied != 2 || out.Rows[1][2] != "ripe" {
		t.Fatalf("unexpected strict result %+v %v", report, out.Rows)
	}
}

func TestApplyHeaderRowOverride(t *testing.T) {
	table := sheet.NewTable([][]string{
		{"Report 2024", "", ""},
		{"Name", "Qty", "Notes"},
		{"apple", "3", "fresh"},
	})
	pattern := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		domain.NewColumnNameStep("s1", 1, "Qty", "Quantity", 1),
	})
	header := 1

	out, _, err := NewExecutor(nil).Apply(pattern, table, Options{Strict: true, HeaderRowIndex: &header})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Rows[1][1] != "Quantity" || out.Rows[0][1] != "" {
		t.Fatalf("rename landed on the wrong row: %v", out.Rows)
	}
}

func TestApplyRejectsMalformedSteps(t *testing.T) {
	pattern := domain.NewPattern(uuid.New(), "p", "", 0, []domain.PatternStep{
		{ID: "broken", Type: domain.StepSetCellValue},
	})
	if _, _, err := NewExecutor(nil).Apply(pattern, sampleTable(), Options{}); !errors.Is(err, ErrInvalidSteps) {
		t.Fatalf("expected ErrInvalidSteps, got %v", err)
	}
}
