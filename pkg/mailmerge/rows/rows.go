// Package rows reads merge records from spreadsheets, CSV files and JSON arrays.
//
// Every source yields a Table: the ordered columns (name and a sample value taken from
// the first record) and the records themselves. For XLSX and CSV the first row holds the
// column names; cells keep the text shown in the sheet.
package rows

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/xuri/excelize/v2"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge"
)

// Format identifies a row source format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrEmptySource is returned when a source has no header row or no records at all
var ErrEmptySource = errors.New("row source is empty")

// Table is the content of a row source
type Table struct {
	Columns []mailmerge.Column
	Rows    []mailmerge.Row
}

// ColumnNames returns the column names in source order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// FormatFromPath derives the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported row source extension %q", ext)
	}
}

// ReadFile reads a row source, choosing the format from the file extension
func ReadFile(path string) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open row source: %w", err)
	}
	defer f.Close()

	t, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read reads a row source in the given format
func Read(r io.Reader, format Format) (*Table, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(r)
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	default:
		return nil, fmt.Errorf("unsupported row source format %q", format)
	}
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySource
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func readCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return fromRecords(records)
}

// fromRecords builds a table from a header row followed by data rows.
// Empty header cells are ignored, a repeated header keeps its first column,
// and rows with no text at all are skipped.
func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptySource
	}

	type column struct {
		name  string
		index int
	}
	var columns []column
	seen := make(map[string]bool)
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		columns = append(columns, column{name: h, index: i})
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: header row has no column names", ErrEmptySource)
	}

	t := &Table{}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(mailmerge.Row, len(columns))
		for _, c := range columns {
			if c.index < len(rec) {
				row[c.name] = rec[c.index]
			} else {
				row[c.name] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}

	t.Columns = make([]mailmerge.Column, len(columns))
	for i, c := range columns {
		t.Columns[i] = mailmerge.Column{Name: c.name}
		if len(t.Rows) > 0 {
			t.Columns[i].SampleValue = mailmerge.FormatValue(t.Rows[0][c.name])
		}
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readJSON reads an array of objects. Comments and trailing commas are allowed.
// Column order follows the first appearance of each key.
func readJSON(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	t := &Table{}
	seen := make(map[string]bool)
	var order []string
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(t.Rows)+1, err)
		}
		row := make(mailmerge.Row)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", len(t.Rows)+1, err)
			}
			key, _ := tok.(string)
			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("record %d, key %q: %w", len(t.Rows)+1, key, err)
			}
			row[key] = flattenValue(value)
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}

	if len(t.Rows) == 0 {
		return nil, ErrEmptySource
	}
	t.Columns = make([]mailmerge.Column, len(order))
	for i, name := range order {
		t.Columns[i] = mailmerge.Column{Name: name, SampleValue: mailmerge.FormatValue(t.Rows[0][name])}
	}
	return t, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to parse json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("failed to parse json: expected %q, got %v", want, tok)
	}
	return nil
}

// flattenValue keeps scalars and renders nested arrays and objects as compact JSON
func flattenValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(out)
	default:
		return v
	}
}
