package recorder

import (
	"encoding/json"
	"sort"

	"github.com/rpattn/sheetpattern/internal/domain"
)

// Target identifies the logical thing a step edits. Column renames key on the
// column alone; cell edits and formats key on the cell.
type Target struct {
	Kind   domain.StepType
	Row    int
	Column int
}

// ColumnTarget is the coalescing key for SET_COLUMN_NAME.
func ColumnTarget(column int) Target {
	return Target{Kind: domain.StepSetColumnName, Column: column}
}

// CellTarget is the coalescing key for per-cell step kinds.
func CellTarget(kind domain.StepType, row, column int) Target {
	return Target{Kind: kind, Row: row, Column: column}
}

// targetOf derives the coalescing key of an existing step. Structural steps
// have none.
func targetOf(step domain.PatternStep) (Target, bool) {
	switch {
	case step.Type == domain.StepSetColumnName && step.ColumnName != nil:
		return ColumnTarget(step.ColumnName.ColumnIndex), true
	case step.Type == domain.StepSetCellValue && step.CellValue != nil:
		return CellTarget(step.Type, step.CellValue.RowIndex, step.CellValue.ColumnIndex), true
	case step.Type == domain.StepSetCellFormat && step.CellFormat != nil:
		return CellTarget(step.Type, step.CellFormat.RowIndex, step.CellFormat.ColumnIndex), true
	}
	return Target{}, false
}

// Entry is the per-target bookkeeping used to decide future coalescing.
type Entry struct {
	StepIndex     int    `json:"stepIndex"`
	LastTimestamp int64  `json:"lastTimestamp"`
	OriginalFrom  string `json:"originalFrom"`
}

// State maps targets to their open coalescing run. The zero value is an empty
// state. State is immutable: With returns a fresh copy.
type State struct {
	entries map[Target]Entry
}

// NewState returns an empty recorder state.
func NewState() State {
	return State{}
}

// Lookup returns the entry for target, if any.
func (s State) Lookup(target Target) (Entry, bool) {
	entry, ok := s.entries[target]
	return entry, ok
}

// With returns a copy of s with target set to entry.
func (s State) With(target Target, entry Entry) State {
	next := make(map[Target]Entry, len(s.entries)+1)
	for key, value := range s.entries {
		next[key] = value
	}
	next[target] = entry
	return State{entries: next}
}

// Len returns the number of tracked targets.
func (s State) Len() int {
	return len(s.entries)
}

// Targets returns the tracked targets ordered by step index, then kind, row and column.
func (s State) Targets() []Target {
	targets := make([]Target, 0, len(s.entries))
	for target := range s.entries {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool {
		left, right := s.entries[targets[i]], s.entries[targets[j]]
		if left.StepIndex != right.StepIndex {
			return left.StepIndex < right.StepIndex
		}
		a, b := targets[i], targets[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
	return targets
}

type stateEntryWire struct {
	Kind   domain.StepType `json:"kind"`
	Row    int             `json:"row"`
	Column int             `json:"column"`
	Entry
}

// MarshalJSON encodes the state as a list of entries in Targets order.
func (s State) MarshalJSON() ([]byte, error) {
	wire := make([]stateEntryWire, 0, len(s.entries))
	for _, target := range s.Targets() {
		wire = append(wire, stateEntryWire{
			Kind:   target.Kind,
			Row:    target.Row,
			Column: target.Column,
			Entry:  s.entries[target],
		})
	}
	return json.Marshal(wire)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var wire []stateEntryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	entries := make(map[Target]Entry, len(wire))
	for _, item := range wire {
		entries[Target{Kind: item.Kind, Row: item.Row, Column: item.Column}] = item.Entry
	}
	s.entries = entries
	return nil
}
