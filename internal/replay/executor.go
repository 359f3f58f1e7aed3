package replay

import (
	"errors"
	"fmt"

	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/sheet"
	"github.com/rpattn/sheetpattern/pkg/validator"

	"go.uber.org/zap"
)

var (
	// ErrPreconditionFailed is returned in strict mode when a step does not
	// match the sheet it is applied to.
	ErrPreconditionFailed = errors.New("replay precondition failed")
	ErrInvalidSteps       = errors.New("pattern steps are invalid")
)

// Options tune a single replay.
type Options struct {
	// Strict turns every skipped step into ErrPreconditionFailed and also
	// checks from_header and from_value against the sheet.
	Strict bool
	// HeaderRowIndex overrides the pattern's header row when set.
	HeaderRowIndex *int
}

// SkippedStep explains why a step had no effect.
type SkippedStep struct {
	StepIndex int             `json:"stepIndex"`
	StepID    string          `json:"stepId"`
	Type      domain.StepType `json:"type"`
	Reason    string          `json:"reason"`
}

// Report summarises a replay.
type Report struct {
	Applied int           `json:"applied"`
	Skipped []SkippedStep `json:"skipped"`
}

// Executor applies stored patterns to sheets.
type Executor struct {
	logger *zap.Logger
}

func NewExecutor(logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{logger: logger}
}

// Apply replays pattern's steps in order against a copy of table.
func (e *Executor) Apply(pattern domain.Pattern, table sheet.Table, opts Options) (sheet.Table, Report, error) {
	v := &validator.StepValidator{AllowNegativeIndices: !opts.Strict}
	if err := v.Validate(pattern.Steps).Err(); err != nil {
		return sheet.Table{}, Report{}, fmt.Errorf("%w: %v", ErrInvalidSteps, err)
	}

	headerRow := pattern.HeaderRowIndex
	if opts.HeaderRowIndex != nil {
		headerRow = *opts.HeaderRowIndex
	}

	out := table.Clone()
	report := Report{Skipped: []SkippedStep{}}
	for idx, step := range pattern.Steps {
		reason := applyStep(&out, step, headerRow, opts.Strict)
		if reason == "" {
			report.Applied++
			continue
		}
		if opts.Strict {
			return sheet.Table{}, Report{}, fmt.Errorf("%w: step %d (%s): %s", ErrPreconditionFailed, idx, step.ID, reason)
		}
		report.Skipped = append(report.Skipped, SkippedStep{StepIndex: idx, StepID: step.ID, Type: step.Type, Reason: reason})
	}

	e.logger.Info("pattern replayed",
		zap.String("pattern", pattern.ID.String()),
		zap.Int("header_row", headerRow),
		zap.Int("applied", report.Applied),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("structural", pattern.StructuralStepCount()))
	return out, report, nil
}

// applyStep mutates t and returns a non-empty reason when the step could not be applied.
func applyStep(t *sheet.Table, step domain.PatternStep, headerRow int, strict bool) string {
	switch step.Type {
	case domain.StepSetColumnName:
		p := step.ColumnName
		current, ok := t.Value(headerRow, p.ColumnIndex)
		if !ok {
			return fmt.Sprintf("header cell (%d, %d) is outside the sheet", headerRow, p.ColumnIndex)
		}
		if strict && current != p.FromHeader {
			return fmt.Sprintf("header is %q, expected %q", current, p.FromHeader)
		}
		t.SetValue(headerRow, p.ColumnIndex, p.ToHeader)
	case domain.StepSetCellValue:
		p := step.CellValue
		current, ok := t.Value(p.RowIndex, p.ColumnIndex)
		if !ok {
			return fmt.Sprintf("cell (%d, %d) is outside the sheet", p.RowIndex, p.ColumnIndex)
		}
		if strict && current != p.FromValue {
			return fmt.Sprintf("cell is %q, expected %q", current, p.FromValue)
		}
		t.SetValue(p.RowIndex, p.ColumnIndex, p.ToValue)
	case domain.StepSetCellFormat:
		p := step.CellFormat
		if !t.SetFormat(p.RowIndex, p.ColumnIndex, p.NumberFormat) {
			return fmt.Sprintf("cell (%d, %d) is outside the sheet", p.RowIndex, p.ColumnIndex)
		}
	case domain.StepInsertRow:
		if !t.InsertRow(step.Structure.Index) {
			return fmt.Sprintf("row %d is outside the sheet", step.Structure.Index)
		}
	case domain.StepDeleteRow:
		if !t.DeleteRow(step.Structure.Index) {
			return fmt.Sprintf("row %d is outside the sheet", step.Structure.Index)
		}
	case domain.StepInsertColumn:
		if !t.InsertColumn(step.Structure.Index) {
			return fmt.Sprintf("column %d is outside the sheet", step.Structure.Index)
		}
	case domain.StepDeleteColumn:
		if !t.DeleteColumn(step.Structure.Index) {
			return fmt.Sprintf("column %d is outside the sheet", step.Structure.Index)
		}
	}
	return ""
}
