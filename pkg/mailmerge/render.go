package mailmerge

import (
	"fmt"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/render"
)

// renderOptions controls how a single row is rendered
type renderOptions struct {
	headersFooters bool
	subst          render.Options
}

func renderOptionsFromConfig(c *Config) renderOptions {
	return renderOptions{
		headersFooters: c.HeadersFooters,
		subst: render.Options{
			LineBreaks: c.LineBreaks,
			Strict:     c.StrictMode,
		},
	}
}

// Render returns a copy of template with every placeholder in mapping replaced by the
// row's value of the mapped column. Placeholders outside the mapping are left as they are.
func Render(template *Archive, mapping Mapping, row Row) (*Archive, error) {
	return renderRow(template, SubstitutionTable(mapping, row), renderOptionsFromConfig(GetGlobalConfig()))
}

// SubstitutionTable builds the replacement for each mapped placeholder, keyed by the
// placeholder name without braces. Missing and nil values become the empty string.
func SubstitutionTable(mapping Mapping, row Row) map[string]string {
	table := make(map[string]string, len(mapping))
	for placeholder, column := range mapping {
		table[render.TokenName(placeholder)] = FormatValue(row[column])
	}
	return table
}

func renderRow(template *Archive, table map[string]string, opts renderOptions) (*Archive, error) {
	if template == nil {
		return nil, &Error{Kind: KindRenderError, Cause: fmt.Errorf("%w: nil template", ErrPartNotFound)}
	}
	out := template.Clone()

	parts := []string{DocumentPart}
	if opts.headersFooters {
		parts = append(parts, out.HeaderFooterParts()...)
	}

	resolve := func(name string) (string, bool) {
		v, ok := table[name]
		return v, ok
	}

	for _, name := range parts {
		if err := renderPart(out, name, resolve, opts.subst); err != nil {
			return nil, &Error{Kind: KindRenderError, Cause: err}
		}
	}
	return out, nil
}

// renderPart substitutes placeholders in one part. Parts without replacements keep
// their original bytes.
func renderPart(a *Archive, name string, resolve render.Resolver, opts render.Options) error {
	doc, err := parsePart(a, name)
	if err != nil {
		return err
	}

	replaced := 0
	for _, p := range doc.Paragraphs() {
		n, err := render.SubstituteParagraph(p, resolve, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		replaced += n
	}
	if replaced == 0 {
		return nil
	}

	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", name, err)
	}
	a.SetPartBytes(name, data)
	return nil
}
