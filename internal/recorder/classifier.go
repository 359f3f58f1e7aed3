package recorder

import "github.com/rpattn/sheetpattern/internal/domain"

// ShouldRecordHeaderRename reports whether an edit on rowIndex is a column
// rename. Only the configured header row qualifies.
func ShouldRecordHeaderRename(rowIndex, headerRowIndex int) bool {
	return rowIndex == headerRowIndex
}

// Classify maps a raw edit to the step type it records. The second return value
// is false when the event matches no step kind; callers treat that as "do not
// record", not as an error.
func Classify(event domain.EditEvent, headerRowIndex int) (domain.StepType, bool) {
	switch event.Kind {
	case domain.EditCellInput, domain.EditCellCommit:
		if ShouldRecordHeaderRename(event.RowIndex, headerRowIndex) {
			return domain.StepSetColumnName, true
		}
		return domain.StepSetCellValue, true
	case domain.EditInsertRow:
		return domain.StepInsertRow, true
	case domain.EditDeleteRow:
		return domain.StepDeleteRow, true
	case domain.EditInsertColumn:
		return domain.StepInsertColumn, true
	case domain.EditDeleteColumn:
		return domain.StepDeleteColumn, true
	case domain.EditFormatCell:
		return domain.StepSetCellFormat, true
	default:
		return "", false
	}
}
