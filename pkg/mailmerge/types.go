package mailmerge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one record of the data source: column name to value.
// Values are strings or numbers; bool and nil are tolerated.
type Row map[string]any

// Mapping assigns a column name to each placeholder, e.g. "{FIRST_NAME}" -> "First name"
type Mapping map[string]string

// Column describes a column of the data source
type Column struct {
	Name        string `json:"name"`
	SampleValue string `json:"sampleValue"`
}

// Assignment is a placeholder together with its mapped column and the column's sample value
type Assignment struct {
	Placeholder string `json:"placeholder"`
	Column      string `json:"column,omitempty"`
	SampleValue string `json:"sampleValue,omitempty"`
}

// Template is an opened template archive together with its placeholder set.
// It is read-only once prepared and safe for concurrent renders.
type Template struct {
	archive      *Archive
	placeholders []string
	key          string
}

// Placeholders returns a copy of the template's sorted placeholder set
func (t *Template) Placeholders() []string {
	return append([]string(nil), t.placeholders...)
}

// Archive returns an independent copy of the template archive
func (t *Template) Archive() *Archive {
	return t.archive.Clone()
}

// Key returns the template's cache key
func (t *Template) Key() string {
	return t.key
}

// FormatValue converts a row value to the text substituted into the document.
// nil becomes the empty string and numbers use their shortest decimal form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
