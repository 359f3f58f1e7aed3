package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const DefaultSheetName = "Sheet1"

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Format names an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromFileName picks the format from the file extension.
func FormatFromFileName(fileName string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Parse reads a CSV or XLSX payload into a table. For workbooks the first sheet is used.
func Parse(fileName string, payload []byte) (Table, error) {
	format, err := FormatFromFileName(fileName)
	if err != nil {
		return Table{}, err
	}
	if len(payload) == 0 {
		return Table{}, errors.New("file is empty")
	}

	var records [][]string
	switch format {
	case FormatCSV:
		records, err = readCSV(payload)
	case FormatXLSX:
		records, err = readExcel(payload)
	}
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{}, errors.New("no rows found in file")
	}
	return NewTable(records), nil
}

func readCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// Write encodes the table in the requested format.
func Write(t Table, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return WriteCSV(t)
	case FormatXLSX:
		return WriteXLSX(t, DefaultSheetName)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteCSV encodes the table as CSV. Number formats are dropped.
func WriteCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX encodes the table as a single-sheet workbook, applying recorded
// number formats as custom cell styles.
func WriteXLSX(t Table, sheetName string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if sheetName != DefaultSheetName {
		if err := f.SetSheetName(DefaultSheetName, sheetName); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	for rowIdx, row := range t.Rows {
		for colIdx, value := range row {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	styles := make(map[string]int)
	for _, target := range t.FormattedCells() {
		numberFormat := t.Formats[target]
		styleID, ok := styles[numberFormat]
		if !ok {
			custom := numberFormat
			created, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
			if err != nil {
				return nil, fmt.Errorf("failed to create style %q: %w", numberFormat, err)
			}
			styles[numberFormat] = created
			styleID = created
		}
		cell, err := excelize.CoordinatesToCellName(target.Column+1, target.Row+1)
		if err != nil {
			return nil, fmt.Errorf("failed to address cell: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, styleID); err != nil {
			return nil, fmt.Errorf("failed to style cell %s: %w", cell, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
