package rows

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"people.xlsx", FormatXLSX, false},
		{"macro.XLSM", FormatXLSX, false},
		{"data/people.csv", FormatCSV, false},
		{"people.json", FormatJSON, false},
		{"people.jsonc", FormatJSON, false},
		{"people.txt", "", true},
		{"people", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffFirst, Last ,Age,,First\n" +
		"John,Smith,42,x,ignored\n" +
		",,,,\n" +
		"Jane,\"Doe, Jr.\"\n"

	table, err := Read(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"First", "Last", "Age"}, table.ColumnNames())
	assert.Equal(t, []mailmerge.Row{
		{"First": "John", "Last": "Smith", "Age": "42"},
		{"First": "Jane", "Last": "Doe, Jr.", "Age": ""},
	}, table.Rows)
	assert.Equal(t, []mailmerge.Column{
		{Name: "First", SampleValue: "John"},
		{Name: "Last", SampleValue: "Smith"},
		{Name: "Age", SampleValue: "42"},
	}, table.Columns)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	table, err := Read(strings.NewReader("A,B\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, table.ColumnNames())
	assert.Empty(t, table.Rows)
	assert.Equal(t, "", table.Columns[0].SampleValue)
}

func TestReadEmptySources(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"empty csv", "", FormatCSV},
		{"blank header", " , \nx,y\n", FormatCSV},
		{"empty json array", "[]", FormatJSON},
		{"json with only comments", "// nothing\n[ ]", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), tt.format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEmptySource))
		})
	}
}

func TestReadJSON(t *testing.T) {
	input := `[
		// customers exported from the CRM
		{"name": "John", "age": 42, "vip": true, "tags": ["a", "b"]},
		{"name": "Jane", "age": 3.5, "city": "Berlin", "address": {"zip": "10115"}},
	]`

	table, err := Read(strings.NewReader(input), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "vip", "tags", "city", "address"}, table.ColumnNames())
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "John", table.Rows[0]["name"])
	assert.Equal(t, json.Number("42"), table.Rows[0]["age"])
	assert.Equal(t, true, table.Rows[0]["vip"])
	assert.Equal(t, `["a","b"]`, table.Rows[0]["tags"])
	assert.Equal(t, json.Number("3.5"), table.Rows[1]["age"])
	assert.Equal(t, `{"zip":"10115"}`, table.Rows[1]["address"])

	assert.Equal(t, mailmerge.Column{Name: "age", SampleValue: "42"}, table.Columns[1])
	assert.Equal(t, mailmerge.Column{Name: "city", SampleValue: ""}, table.Columns[4])
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"object instead of array", `{"a": 1}`, "expected"},
		{"array of scalars", `[1, 2]`, "record 1"},
		{"truncated", `[{"a": 1}`, "failed to parse json"},
		{"not json", `name,age`, "failed to parse json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), FormatJSON)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func xlsxBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := xlsxBytes(t, [][]any{
		{"First Name", "Amount", "Email"},
		{"John", 19.5, "john@example.com"},
		{"Jane", 3},
	})

	table, err := Read(bytes.NewReader(data), FormatXLSX)
	require.NoError(t, err)

	assert.Equal(t, []string{"First Name", "Amount", "Email"}, table.ColumnNames())
	assert.Equal(t, []mailmerge.Row{
		{"First Name": "John", "Amount": "19.5", "Email": "john@example.com"},
		{"First Name": "Jane", "Amount": "3", "Email": ""},
	}, table.Rows)
	assert.Equal(t, "john@example.com", table.Columns[2].SampleValue)
}

func TestReadXLSXInvalid(t *testing.T) {
	_, err := Read(strings.NewReader("not a spreadsheet"), FormatXLSX)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open spreadsheet")
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name\nAda\n"), 0o600))

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []mailmerge.Row{{"Name": "Ada"}}, table.Rows)

	_, err = ReadFile(filepath.Join(dir, "people.txt"))
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open row source")
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := Read(strings.NewReader(""), Format("ods"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported row source format")
}
