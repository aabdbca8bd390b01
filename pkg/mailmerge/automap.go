package mailmerge

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/render"
)

// AutoMap proposes a column for each placeholder. A column whose name equals the
// placeholder name, ignoring case, wins; otherwise the first column whose name contains
// the placeholder name or is contained in it is chosen. Placeholders without a match are
// absent from the result.
func AutoMap(placeholders []string, columns []Column) Mapping {
	fold := cases.Fold()
	folded := make([]string, len(columns))
	for i, c := range columns {
		folded[i] = fold.String(strings.TrimSpace(c.Name))
	}

	mapping := make(Mapping)
	for _, p := range placeholders {
		name := fold.String(strings.TrimSpace(render.TokenName(p)))
		if name == "" {
			continue
		}
		if i := matchColumn(name, folded); i >= 0 {
			mapping[p] = columns[i].Name
		}
	}
	return mapping
}

func matchColumn(name string, folded []string) int {
	for i, col := range folded {
		if col == name {
			return i
		}
	}
	for i, col := range folded {
		if col == "" {
			continue
		}
		if strings.Contains(col, name) || strings.Contains(name, col) {
			return i
		}
	}
	return -1
}

// Preview lists each placeholder with its mapped column and that column's sample value
func Preview(placeholders []string, mapping Mapping, columns []Column) []Assignment {
	samples := make(map[string]string, len(columns))
	for _, c := range columns {
		if _, ok := samples[c.Name]; !ok {
			samples[c.Name] = c.SampleValue
		}
	}

	out := make([]Assignment, len(placeholders))
	for i, p := range placeholders {
		col := mapping[p]
		out[i] = Assignment{Placeholder: p, Column: col, SampleValue: samples[col]}
	}
	return out
}
