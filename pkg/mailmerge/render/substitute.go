package render

import (
	"strings"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/xml"
)

// Resolver returns the replacement for a bare token name.
// ok is false when the token is not mapped; the placeholder is then left verbatim.
type Resolver func(name string) (value string, ok bool)

// Options controls paragraph substitution
type Options struct {
	// LineBreaks turns newlines in values into w:br elements
	LineBreaks bool
	// Strict rejects paragraphs with unbalanced braces
	Strict bool
}

// span is a resolved placeholder in the flattened paragraph text
type span struct {
	start, end int
	value      string
}

// SubstituteParagraph replaces every resolved placeholder in the paragraph and returns
// the number of replacements made
func SubstituteParagraph(para *xml.Paragraph, resolve Resolver, opts Options) (int, error) {
	nodes := para.TextNodes()
	if len(nodes) == 0 {
		return 0, nil
	}

	texts := make([]string, len(nodes))
	var sb strings.Builder
	for i, n := range nodes {
		texts[i] = n.Text()
		sb.WriteString(texts[i])
	}
	full := sb.String()

	if opts.Strict {
		if err := CheckDelimiters(full); err != nil {
			return 0, err
		}
	}

	var spans []span
	for _, m := range PlaceholderPattern.FindAllStringIndex(full, -1) {
		value, ok := resolve(TokenName(full[m[0]:m[1]]))
		if !ok {
			continue
		}
		spans = append(spans, span{start: m[0], end: m[1], value: value})
	}
	if len(spans) == 0 {
		return 0, nil
	}

	rewritten := rewriteSegments(texts, full, spans)
	for i, n := range nodes {
		if rewritten[i] == texts[i] {
			continue
		}
		n.SetText(rewritten[i])
		if opts.LineBreaks {
			ExpandLineBreaks(n)
		}
	}

	return len(spans), nil
}

// rewriteSegments maps the spans back onto the text nodes. A span's value is written
// into the node holding its first character; the span's characters are dropped from
// every node it covers.
func rewriteSegments(texts []string, full string, spans []span) []string {
	out := make([]string, len(texts))
	offset := 0
	for i, text := range texts {
		start, end := offset, offset+len(text)
		offset = end

		var sb strings.Builder
		cursor := start
		for _, s := range spans {
			if s.end <= start || s.start >= end {
				continue
			}
			if s.start > cursor {
				sb.WriteString(full[cursor:s.start])
			}
			if s.start >= start {
				sb.WriteString(s.value)
			}
			cursor = min(s.end, end)
		}
		if cursor < end {
			sb.WriteString(full[cursor:end])
		}
		out[i] = sb.String()
	}
	return out
}

// ExpandLineBreaks splits a text node containing newlines into text nodes separated by
// w:br elements inside the same run
func ExpandLineBreaks(n xml.TextNode) {
	text := strings.ReplaceAll(n.Text(), "\r\n", "\n")
	if !strings.Contains(text, "\n") || n.Run == nil {
		return
	}

	lines := strings.Split(text, "\n")
	n.SetText(lines[0])

	var inserted []xml.Node
	for _, line := range lines[1:] {
		inserted = append(inserted, xml.NewSibling(n.Element, "br"))
		if line == "" {
			continue
		}
		t := xml.NewSibling(n.Element, "t")
		t.SetText(line)
		inserted = append(inserted, t)
	}
	n.Run.InsertAfter(n.Element, inserted...)
}
