package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StepType enumerates the closed set of recorded intents.
type StepType string

const (
	StepSetColumnName StepType = "SET_COLUMN_NAME"
	StepSetCellValue  StepType = "SET_CELL_VALUE"
	StepInsertRow     StepType = "INSERT_ROW"
	StepDeleteRow     StepType = "DELETE_ROW"
	StepInsertColumn  StepType = "INSERT_COLUMN"
	StepDeleteColumn  StepType = "DELETE_COLUMN"
	StepSetCellFormat StepType = "SET_CELL_FORMAT"
)

// ErrUnknownStepType is returned when decoding a step whose type is outside the closed set.
var ErrUnknownStepType = errors.New("unknown step type")

// AllStepTypes lists every supported step type in declaration order.
var AllStepTypes = []StepType{
	StepSetColumnName,
	StepSetCellValue,
	StepInsertRow,
	StepDeleteRow,
	StepInsertColumn,
	StepDeleteColumn,
	StepSetCellFormat,
}

// Valid reports whether t belongs to the closed set.
func (t StepType) Valid() bool {
	for _, known := range AllStepTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsStructural reports whether the step shifts row or column indices.
func (t StepType) IsStructural() bool {
	switch t {
	case StepInsertRow, StepDeleteRow, StepInsertColumn, StepDeleteColumn:
		return true
	}
	return false
}

// PatternStep is one atomic, replayable intent. Exactly one params block is set,
// matching Type.
type PatternStep struct {
	ID        string
	Type      StepType
	Timestamp int64

	ColumnName *ColumnNameParams
	CellValue  *CellValueParams
	Structure  *StructureParams
	CellFormat *CellFormatParams
}

type ColumnNameParams struct {
	ColumnIndex int    `json:"column_index"`
	FromHeader  string `json:"from_header"`
	ToHeader    string `json:"to_header"`
}

type CellValueParams struct {
	RowIndex    int    `json:"row_index"`
	ColumnIndex int    `json:"column_index"`
	FromValue   string `json:"from_value"`
	ToValue     string `json:"to_value"`
}

// StructureParams holds the row index for row operations and the column index
// for column operations.
type StructureParams struct {
	Index int
}

type CellFormatParams struct {
	RowIndex     int    `json:"row_index"`
	ColumnIndex  int    `json:"column_index"`
	NumberFormat string `json:"number_format"`
}

type rowStructureWire struct {
	RowIndex int `json:"row_index"`
}

type columnStructureWire struct {
	ColumnIndex int `json:"column_index"`
}

// NewColumnNameStep creates a SET_COLUMN_NAME step.
func NewColumnNameStep(id string, columnIndex int, fromHeader, toHeader string, timestamp int64) PatternStep {
	return PatternStep{
		ID:        id,
		Type:      StepSetColumnName,
		Timestamp: timestamp,
		ColumnName: &ColumnNameParams{
			ColumnIndex: columnIndex,
			FromHeader:  fromHeader,
			ToHeader:    toHeader,
		},
	}
}

// NewCellValueStep creates a SET_CELL_VALUE step.
func NewCellValueStep(id string, rowIndex, columnIndex int, fromValue, toValue string, timestamp int64) PatternStep {
	return PatternStep{
		ID:        id,
		Type:      StepSetCellValue,
		Timestamp: timestamp,
		CellValue: &CellValueParams{
			RowIndex:    rowIndex,
			ColumnIndex: columnIndex,
			FromValue:   fromValue,
			ToValue:     toValue,
		},
	}
}

// NewStructureStep creates an insert/delete row or column step.
func NewStructureStep(id string, stepType StepType, index int, timestamp int64) PatternStep {
	return PatternStep{
		ID:        id,
		Type:      stepType,
		Timestamp: timestamp,
		Structure: &StructureParams{Index: index},
	}
}

// NewCellFormatStep creates a SET_CELL_FORMAT step.
func NewCellFormatStep(id string, rowIndex, columnIndex int, numberFormat string, timestamp int64) PatternStep {
	return PatternStep{
		ID:        id,
		Type:      StepSetCellFormat,
		Timestamp: timestamp,
		CellFormat: &CellFormatParams{
			RowIndex:     rowIndex,
			ColumnIndex:  columnIndex,
			NumberFormat: numberFormat,
		},
	}
}

// WithTarget returns a copy whose "to" side and timestamp are replaced. The id
// and every "from" field are carried over untouched. Structural steps have no
// "to" side, so only the timestamp changes.
func (s PatternStep) WithTarget(to string, timestamp int64) PatternStep {
	next := s.Clone()
	next.Timestamp = timestamp
	switch {
	case next.ColumnName != nil:
		next.ColumnName.ToHeader = to
	case next.CellValue != nil:
		next.CellValue.ToValue = to
	case next.CellFormat != nil:
		next.CellFormat.NumberFormat = to
	}
	return next
}

// Clone copies the step including its params block.
func (s PatternStep) Clone() PatternStep {
	out := s
	if s.ColumnName != nil {
		params := *s.ColumnName
		out.ColumnName = &params
	}
	if s.CellValue != nil {
		params := *s.CellValue
		out.CellValue = &params
	}
	if s.Structure != nil {
		params := *s.Structure
		out.Structure = &params
	}
	if s.CellFormat != nil {
		params := *s.CellFormat
		out.CellFormat = &params
	}
	return out
}

// Params returns the wire representation of the active params block, or nil
// when the block matching Type is missing.
func (s PatternStep) Params() any {
	switch s.Type {
	case StepSetColumnName:
		if s.ColumnName != nil {
			return *s.ColumnName
		}
	case StepSetCellValue:
		if s.CellValue != nil {
			return *s.CellValue
		}
	case StepInsertRow, StepDeleteRow:
		if s.Structure != nil {
			return rowStructureWire{RowIndex: s.Structure.Index}
		}
	case StepInsertColumn, StepDeleteColumn:
		if s.Structure != nil {
			return columnStructureWire{ColumnIndex: s.Structure.Index}
		}
	case StepSetCellFormat:
		if s.CellFormat != nil {
			return *s.CellFormat
		}
	}
	return nil
}

type stepWire struct {
	ID        string          `json:"id"`
	Type      StepType        `json:"type"`
	Params    json.RawMessage `json:"params"`
	Timestamp int64           `json:"timestamp"`
}

// MarshalJSON encodes the step as {id, type, params, timestamp}.
func (s PatternStep) MarshalJSON() ([]byte, error) {
	params := s.Params()
	if params == nil {
		params = struct{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stepWire{
		ID:        s.ID,
		Type:      s.Type,
		Params:    raw,
		Timestamp: s.Timestamp,
	})
}

// UnmarshalJSON decodes the wire form back into the typed params block.
func (s *PatternStep) UnmarshalJSON(data []byte) error {
	var wire stepWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	step := PatternStep{ID: wire.ID, Type: wire.Type, Timestamp: wire.Timestamp}
	params := wire.Params
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}

	switch wire.Type {
	case StepSetColumnName:
		step.ColumnName = &ColumnNameParams{}
		if err := json.Unmarshal(params, step.ColumnName); err != nil {
			return fmt.Errorf("decode %s params: %w", wire.Type, err)
		}
	case StepSetCellValue:
		step.CellValue = &CellValueParams{}
		if err := json.Unmarshal(params, step.CellValue); err != nil {
			return fmt.Errorf("decode %s params: %w", wire.Type, err)
		}
	case StepInsertRow, StepDeleteRow:
		var row rowStructureWire
		if err := json.Unmarshal(params, &row); err != nil {
			return fmt.Errorf("decode %s params: %w", wire.Type, err)
		}
		step.Structure = &StructureParams{Index: row.RowIndex}
	case StepInsertColumn, StepDeleteColumn:
		var col columnStructureWire
		if err := json.Unmarshal(params, &col); err != nil {
			return fmt.Errorf("decode %s params: %w", wire.Type, err)
		}
		step.Structure = &StructureParams{Index: col.ColumnIndex}
	case StepSetCellFormat:
		step.CellFormat = &CellFormatParams{}
		if err := json.Unmarshal(params, step.CellFormat); err != nil {
			return fmt.Errorf("decode %s params: %w", wire.Type, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStepType, wire.Type)
	}

	*s = step
	return nil
}

// CloneSteps copies a step sequence so callers can append or replace without
// touching the original backing array.
func CloneSteps(steps []PatternStep) []PatternStep {
	out := make([]PatternStep, len(steps))
	for i, step := range steps {
		out[i] = step.Clone()
	}
	return out
}

func PatternStepsToJSON(steps []PatternStep) (json.RawMessage, error) {
	if steps == nil {
		steps = []PatternStep{}
	}
	return json.Marshal(steps)
}

func PatternStepsFromJSON(data json.RawMessage) ([]PatternStep, error) {
	if len(data) == 0 {
		return []PatternStep{}, nil
	}
	var steps []PatternStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, err
	}
	if steps == nil {
		steps = []PatternStep{}
	}
	return steps, nil
}
