package recorder

import (
	"errors"
	"time"

	"github.com/rpattn/sheetpattern/internal/domain"

	"github.com/google/uuid"
)

const (
	// DefaultHeaderRowIndex is the row treated as the header when none is configured.
	DefaultHeaderRowIndex = 0
	// DefaultWindow is the dedup window used when none is configured.
	DefaultWindow = 1500 * time.Millisecond

	SkipUnclassified = "unclassified"
)

var (
	ErrInvalidWindow    = errors.New("dedup window must not be negative")
	ErrInvalidHeaderRow = errors.New("header row index must not be negative")
)

// Config is the recorder's configuration surface.
type Config struct {
	HeaderRowIndex int
	Window         time.Duration
	NewID          IDGenerator
}

// DefaultConfig returns a default recorder configuration
func DefaultConfig() Config {
	return Config{
		HeaderRowIndex: DefaultHeaderRowIndex,
		Window:         DefaultWindow,
	}
}

// Recorder routes raw edit events to the matching recording function. It holds
// only validated configuration; all recording state is passed in and returned.
type Recorder struct {
	headerRowIndex int
	window         time.Duration
	newID          IDGenerator
}

// Outcome reports what Record did with an event.
type Outcome struct {
	Result
	Type          domain.StepType
	Recorded      bool
	SkippedReason string
}

// New validates cfg and builds a recorder.
func New(cfg Config) (*Recorder, error) {
	if cfg.Window < 0 {
		return nil, ErrInvalidWindow
	}
	if cfg.HeaderRowIndex < 0 {
		return nil, ErrInvalidHeaderRow
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Recorder{
		headerRowIndex: cfg.HeaderRowIndex,
		window:         cfg.Window,
		newID:          newID,
	}, nil
}

// HeaderRowIndex returns the configured header row.
func (r *Recorder) HeaderRowIndex() int {
	return r.headerRowIndex
}

// Window returns the configured dedup window.
func (r *Recorder) Window() time.Duration {
	return r.window
}

// ShouldRecordHeaderRename reports whether rowIndex is the configured header row.
func (r *Recorder) ShouldRecordHeaderRename(rowIndex int) bool {
	return ShouldRecordHeaderRename(rowIndex, r.headerRowIndex)
}

// Record classifies event and folds it into (steps, state), using the event's
// timestamp as the logical clock. Unclassified events return the inputs
// unchanged with Recorded false.
func (r *Recorder) Record(steps []domain.PatternStep, state State, event domain.EditEvent) Outcome {
	stepType, ok := Classify(event, r.headerRowIndex)
	if !ok {
		return Outcome{
			Result:        Result{Steps: steps, State: state, StepIndex: -1},
			SkippedReason: SkipUnclassified,
		}
	}

	now := event.Timestamp
	var result Result
	switch stepType {
	case domain.StepSetColumnName:
		result = RecordRenameColumnStep(steps, RenameColumnEvent{
			ColumnIndex:    event.ColumnIndex,
			NewName:        event.NewValue,
			OldName:        event.OldValue,
			HeaderRowIndex: r.headerRowIndex,
		}, state, r.newID, now, r.window)
	case domain.StepSetCellValue:
		result = RecordCellValueStep(steps, cellEdit(event, event.NewValue), state, r.newID, now, r.window)
	case domain.StepSetCellFormat:
		result = RecordCellFormatStep(steps, cellEdit(event, event.Format), state, r.newID, now, r.window)
	case domain.StepInsertRow, domain.StepDeleteRow:
		result = RecordStructuralStep(steps, stepType, event.RowIndex, r.newID, now)
	case domain.StepInsertColumn, domain.StepDeleteColumn:
		result = RecordStructuralStep(steps, stepType, event.ColumnIndex, r.newID, now)
	}

	return Outcome{Result: result, Type: stepType, Recorded: true}
}

func cellEdit(event domain.EditEvent, to string) CellEditEvent {
	return CellEditEvent{
		RowIndex:    event.RowIndex,
		ColumnIndex: event.ColumnIndex,
		OldValue:    event.OldValue,
		NewValue:    to,
	}
}
