package mailmerge

import (
	"errors"
	"fmt"
	"sort"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/render"
	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/xml"
)

// Scan returns the sorted set of distinct placeholders in the archive's body, and in its
// headers and footers when the global configuration enables them
func Scan(a *Archive) ([]string, error) {
	return scanArchive(a, GetGlobalConfig().HeadersFooters)
}

func scanArchive(a *Archive, headersFooters bool) ([]string, error) {
	doc, err := parseBody(a)
	if err != nil {
		return nil, &Error{Kind: KindInvalidTemplate, Op: "scan", Cause: err}
	}

	seen := make(map[string]struct{})
	collectPlaceholders(doc, seen)

	if headersFooters {
		for _, name := range a.HeaderFooterParts() {
			part, err := parsePart(a, name)
			if err != nil {
				return nil, &Error{Kind: KindInvalidTemplate, Op: "scan", Cause: err}
			}
			collectPlaceholders(part, seen)
		}
	}

	placeholders := make([]string, 0, len(seen))
	for p := range seen {
		placeholders = append(placeholders, p)
	}
	sort.Strings(placeholders)
	return placeholders, nil
}

// collectPlaceholders matches paragraph by paragraph; a token never spans two paragraphs
func collectPlaceholders(doc *xml.Document, seen map[string]struct{}) {
	for _, p := range doc.Paragraphs() {
		for _, token := range render.FindPlaceholders(p.Text()) {
			seen[token] = struct{}{}
		}
	}
}

var errNoBody = errors.New("document has no body")

// parseBody parses the main document part and checks that it has a body
func parseBody(a *Archive) (*xml.Document, error) {
	doc, err := parsePart(a, DocumentPart)
	if err != nil {
		return nil, err
	}
	if doc.Body() == nil {
		return nil, fmt.Errorf("%s: %w", DocumentPart, errNoBody)
	}
	return doc, nil
}

func parsePart(a *Archive, name string) (*xml.Document, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil archive", ErrPartNotFound)
	}
	data, err := a.GetPartBytes(name)
	if err != nil {
		return nil, err
	}
	doc, err := xml.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return doc, nil
}
