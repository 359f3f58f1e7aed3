package domain

// EditKind identifies the raw mutation reported by the grid layer.
type EditKind string

const (
	EditCellInput    EditKind = "cell_input"
	EditCellCommit   EditKind = "cell_commit"
	EditInsertRow    EditKind = "insert_row"
	EditDeleteRow    EditKind = "delete_row"
	EditInsertColumn EditKind = "insert_column"
	EditDeleteColumn EditKind = "delete_column"
	EditFormatCell   EditKind = "format_cell"
)

// EditEvent is a single raw edit as emitted by the spreadsheet grid.
// Timestamp is a logical clock in milliseconds supplied by the caller.
type EditEvent struct {
	Kind        EditKind `json:"kind"`
	RowIndex    int      `json:"rowIndex"`
	ColumnIndex int      `json:"columnIndex"`
	OldValue    string   `json:"oldValue"`
	NewValue    string   `json:"newValue"`
	Format      string   `json:"format,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}
