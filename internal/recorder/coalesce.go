package recorder

import (
	"time"

	"github.com/rpattn/sheetpattern/internal/domain"
)

// IDGenerator returns a fresh unique step id. It is only called when a new
// step is created.
type IDGenerator func() string

// RenameColumnEvent is a header cell edit. HeaderRowIndex is the header row the
// caller asserts for this event after checking ShouldRecordHeaderRename.
type RenameColumnEvent struct {
	ColumnIndex    int
	NewName        string
	OldName        string
	HeaderRowIndex int
}

// CellEditEvent is a value or format edit on a single non-header cell.
type CellEditEvent struct {
	RowIndex    int
	ColumnIndex int
	OldValue    string
	NewValue    string
}

// Result is the next (steps, state) pair. Merged is true when the event was
// folded into an existing step; StepIndex points at the step that was created
// or updated.
type Result struct {
	Steps     []domain.PatternStep
	State     State
	Merged    bool
	StepIndex int
}

// Step returns the step created or updated by the call. ok is false when the
// call left the list unchanged.
func (r Result) Step() (domain.PatternStep, bool) {
	if r.StepIndex < 0 || r.StepIndex >= len(r.Steps) {
		return domain.PatternStep{}, false
	}
	return r.Steps[r.StepIndex], true
}

// RecordRenameColumnStep folds a header rename into the step sequence. Edits on
// the same column within window of the previous one update that step's
// to_header; from_header always keeps the value seen before the first edit of
// the run. Neither steps nor state are modified.
//
// Timestamps per column are assumed non-decreasing. An older event arriving
// after a newer one is merged as is and overwrites to_header.
func RecordRenameColumnStep(steps []domain.PatternStep, event RenameColumnEvent, state State, newID IDGenerator, now int64, window time.Duration) Result {
	return coalesce(steps, state, ColumnTarget(event.ColumnIndex), event.OldName, event.NewName, newID, now, window,
		func(id string) domain.PatternStep {
			return domain.NewColumnNameStep(id, event.ColumnIndex, event.OldName, event.NewName, now)
		})
}

// RecordCellValueStep folds a data cell edit into the step sequence, coalescing
// per cell with the same rules as RecordRenameColumnStep.
func RecordCellValueStep(steps []domain.PatternStep, event CellEditEvent, state State, newID IDGenerator, now int64, window time.Duration) Result {
	target := CellTarget(domain.StepSetCellValue, event.RowIndex, event.ColumnIndex)
	return coalesce(steps, state, target, event.OldValue, event.NewValue, newID, now, window,
		func(id string) domain.PatternStep {
			return domain.NewCellValueStep(id, event.RowIndex, event.ColumnIndex, event.OldValue, event.NewValue, now)
		})
}

// RecordCellFormatStep folds a number format change into the step sequence.
// Only the latest format of a run is kept.
func RecordCellFormatStep(steps []domain.PatternStep, event CellEditEvent, state State, newID IDGenerator, now int64, window time.Duration) Result {
	target := CellTarget(domain.StepSetCellFormat, event.RowIndex, event.ColumnIndex)
	return coalesce(steps, state, target, event.OldValue, event.NewValue, newID, now, window,
		func(id string) domain.PatternStep {
			return domain.NewCellFormatStep(id, event.RowIndex, event.ColumnIndex, event.NewValue, now)
		})
}

// RecordStructuralStep appends an insert/delete row or column step. Structural
// steps never coalesce and close every open run, since indices recorded before
// the shift no longer name the same cells.
func RecordStructuralStep(steps []domain.PatternStep, stepType domain.StepType, index int, newID IDGenerator, now int64) Result {
	next := make([]domain.PatternStep, len(steps), len(steps)+1)
	copy(next, steps)
	next = append(next, domain.NewStructureStep(newID(), stepType, index, now))
	return Result{
		Steps:     next,
		State:     NewState(),
		StepIndex: len(next) - 1,
	}
}

func coalesce(
	steps []domain.PatternStep,
	state State,
	target Target,
	from, to string,
	newID IDGenerator,
	now int64,
	window time.Duration,
	build func(id string) domain.PatternStep,
) Result {
	if entry, ok := state.Lookup(target); ok && isOpen(steps, entry, target, now, window) {
		next := make([]domain.PatternStep, len(steps))
		copy(next, steps)
		next[entry.StepIndex] = steps[entry.StepIndex].WithTarget(to, now)

		return Result{
			Steps: next,
			State: state.With(target, Entry{
				StepIndex:     entry.StepIndex,
				LastTimestamp: now,
				OriginalFrom:  entry.OriginalFrom,
			}),
			Merged:    true,
			StepIndex: entry.StepIndex,
		}
	}

	next := make([]domain.PatternStep, len(steps), len(steps)+1)
	copy(next, steps)
	next = append(next, build(newID()))
	index := len(next) - 1

	return Result{
		Steps: next,
		State: state.With(target, Entry{
			StepIndex:     index,
			LastTimestamp: now,
			OriginalFrom:  from,
		}),
		StepIndex: index,
	}
}

// isOpen reports whether entry still refers to a step of target that may
// absorb an edit at now.
func isOpen(steps []domain.PatternStep, entry Entry, target Target, now int64, window time.Duration) bool {
	if now-entry.LastTimestamp > window.Milliseconds() {
		return false
	}
	if entry.StepIndex < 0 || entry.StepIndex >= len(steps) {
		return false
	}
	current, ok := targetOf(steps[entry.StepIndex])
	return ok && current == target
}
