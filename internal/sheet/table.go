package sheet

import (
	"sort"
	"strings"
)

// Cell addresses a zero-based row and column.
type Cell struct {
	Row    int
	Column int
}

// Table is a rectangular grid of string cells plus optional per-cell number
// formats. Rows are padded to a common width.
type Table struct {
	Rows    [][]string
	Formats map[Cell]string
}

// NewTable builds a padded table from raw records.
func NewTable(records [][]string) Table {
	width := 0
	for _, row := range records {
		if len(row) > width {
			width = len(row)
		}
	}
	rows := make([][]string, len(records))
	for i, row := range records {
		rows[i] = padRow(row, width)
	}
	return Table{Rows: rows}
}

// Width returns the number of columns.
func (t Table) Width() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// Height returns the number of rows.
func (t Table) Height() int {
	return len(t.Rows)
}

// Value returns the cell value and whether the address is inside the table.
func (t Table) Value(row, column int) (string, bool) {
	if row < 0 || row >= t.Height() || column < 0 || column >= t.Width() {
		return "", false
	}
	return t.Rows[row][column], true
}

// Clone deep-copies the table.
func (t Table) Clone() Table {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]string(nil), row...)
	}
	var formats map[Cell]string
	if len(t.Formats) > 0 {
		formats = make(map[Cell]string, len(t.Formats))
		for cell, format := range t.Formats {
			formats[cell] = format
		}
	}
	return Table{Rows: rows, Formats: formats}
}

// SetValue writes a cell, reporting false when the address is outside the table.
func (t *Table) SetValue(row, column int, value string) bool {
	if _, ok := t.Value(row, column); !ok {
		return false
	}
	t.Rows[row][column] = value
	return true
}

// SetFormat records a number format for a cell inside the table.
func (t *Table) SetFormat(row, column int, format string) bool {
	if _, ok := t.Value(row, column); !ok {
		return false
	}
	if t.Formats == nil {
		t.Formats = make(map[Cell]string)
	}
	if format == "" {
		delete(t.Formats, Cell{Row: row, Column: column})
		return true
	}
	t.Formats[Cell{Row: row, Column: column}] = format
	return true
}

// InsertRow inserts an empty row before index. index may equal Height to append.
func (t *Table) InsertRow(index int) bool {
	if index < 0 || index > t.Height() {
		return false
	}
	row := make([]string, t.Width())
	t.Rows = append(t.Rows, nil)
	copy(t.Rows[index+1:], t.Rows[index:])
	t.Rows[index] = row
	t.shiftFormats(func(c Cell) (Cell, bool) {
		if c.Row >= index {
			c.Row++
		}
		return c, true
	})
	return true
}

// DeleteRow removes the row at index.
func (t *Table) DeleteRow(index int) bool {
	if index < 0 || index >= t.Height() {
		return false
	}
	t.Rows = append(t.Rows[:index], t.Rows[index+1:]...)
	t.shiftFormats(func(c Cell) (Cell, bool) {
		switch {
		case c.Row == index:
			return c, false
		case c.Row > index:
			c.Row--
		}
		return c, true
	})
	return true
}

// InsertColumn inserts an empty column before index. index may equal Width to
// append. A table without rows has no column to extend and reports false.
func (t *Table) InsertColumn(index int) bool {
	if t.Height() == 0 || index < 0 || index > t.Width() {
		return false
	}
	for i, row := range t.Rows {
		row = append(row, "")
		copy(row[index+1:], row[index:])
		row[index] = ""
		t.Rows[i] = row
	}
	t.shiftFormats(func(c Cell) (Cell, bool) {
		if c.Column >= index {
			c.Column++
		}
		return c, true
	})
	return true
}

// DeleteColumn removes the column at index.
func (t *Table) DeleteColumn(index int) bool {
	if index < 0 || index >= t.Width() {
		return false
	}
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:index], row[index+1:]...)
	}
	t.shiftFormats(func(c Cell) (Cell, bool) {
		switch {
		case c.Column == index:
			return c, false
		case c.Column > index:
			c.Column--
		}
		return c, true
	})
	return true
}

func (t *Table) shiftFormats(move func(Cell) (Cell, bool)) {
	if len(t.Formats) == 0 {
		return
	}
	next := make(map[Cell]string, len(t.Formats))
	for cell, format := range t.Formats {
		if moved, keep := move(cell); keep {
			next[moved] = format
		}
	}
	t.Formats = next
}

// FormattedCells returns the formatted cells in row-major order.
func (t Table) FormattedCells() []Cell {
	cells := make([]Cell, 0, len(t.Formats))
	for cell := range t.Formats {
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Column < cells[j].Column
	})
	return cells
}

// DetectHeaderRow returns the index of the first non-empty row, or -1.
func DetectHeaderRow(records [][]string) int {
	for idx, row := range records {
		if len(cleanRow(row)) > 0 {
			return idx
		}
	}
	return -1
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func padRow(row []string, length int) []string {
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
