package mailmerge

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/xml"
)

const namespaceMC = "http://schemas.openxmlformats.org/markup-compatibility/2006"

// Concatenate joins the bodies of docs into one document, separated by page breaks.
// The first document is the carrier: its styles, headers, footers and section properties
// are kept. A later document whose body cannot be read is skipped.
func Concatenate(docs []*Archive) (*Archive, error) {
	return concatenate(docs, Logger())
}

func concatenate(docs []*Archive, logger *slog.Logger) (*Archive, error) {
	if len(docs) == 0 {
		return nil, &Error{Kind: KindEmptyInput, Op: "concatenate"}
	}

	carrier, err := parseBody(docs[0])
	if err != nil {
		return nil, &Error{Kind: KindMergeError, Op: "concatenate", Cause: fmt.Errorf("document 1: %w", err)}
	}
	if len(docs) == 1 {
		return docs[0].Clone(), nil
	}

	body := carrier.Body()
	prefix := carrier.PrefixFor(xml.NamespaceW, "w")
	appended := 1

	for i, doc := range docs[1:] {
		n := i + 2
		next, err := parseBody(doc)
		if err != nil {
			logger.Warn("skipping unreadable document", "document", n, "error", err)
			continue
		}
		if err := carrier.MergeNamespaces(next.Namespaces()); err != nil {
			logger.Warn("skipping document with conflicting namespaces", "document", n, "error", err)
			continue
		}
		mergeIgnorable(carrier.Root, next.Root)

		blocks := next.Body().Blocks()
		copies := make([]*xml.Element, 0, len(blocks)+1)
		copies = append(copies, xml.NewPageBreakParagraph(prefix))
		for _, b := range blocks {
			copies = append(copies, b.Clone())
		}
		body.Append(copies...)
		appended++
	}

	renumberDrawings(body.Element)

	data, err := carrier.Marshal()
	if err != nil {
		return nil, &Error{Kind: KindMergeError, Op: "concatenate", Cause: err}
	}
	out := docs[0].Clone()
	out.SetPartBytes(DocumentPart, data)

	logger.Debug("concatenated documents", "input", len(docs), "appended", appended)
	return out, nil
}

// mergeIgnorable adds the mc:Ignorable prefixes of src that dst does not list yet
func mergeIgnorable(dst, src *xml.Element) {
	srcVal, ok := ignorableAttr(src)
	if !ok || srcVal.Value == "" {
		return
	}
	dstAttr, ok := ignorableAttr(dst)
	if !ok {
		prefix := mcPrefix(dst)
		if prefix == "" {
			return
		}
		dst.Attrs = append(dst.Attrs, xml.Attr{
			Name:  xml.Name{Prefix: prefix, Local: "Ignorable", Space: namespaceMC},
			Value: srcVal.Value,
		})
		return
	}

	have := make(map[string]bool)
	tokens := strings.Fields(dstAttr.Value)
	for _, t := range tokens {
		have[t] = true
	}
	for _, t := range strings.Fields(srcVal.Value) {
		if !have[t] {
			tokens = append(tokens, t)
			have[t] = true
		}
	}
	dstAttr.Value = strings.Join(tokens, " ")
}

func ignorableAttr(e *xml.Element) (*xml.Attr, bool) {
	for i := range e.Attrs {
		a := &e.Attrs[i]
		if a.Name.Local == "Ignorable" && a.Name.Space == namespaceMC {
			return a, true
		}
	}
	return nil, false
}

// mcPrefix returns the prefix root declares for the markup compatibility namespace
func mcPrefix(root *xml.Element) string {
	for _, a := range root.Attrs {
		if a.Name.Prefix == "xmlns" && a.Value == namespaceMC {
			return a.Name.Local
		}
	}
	return ""
}

// renumberDrawings assigns sequential ids to the drawing properties in the body so that
// copies of the same drawing do not collide
func renumberDrawings(body *xml.Element) {
	id := 0
	body.Walk(func(e *xml.Element) bool {
		if e.Is(xml.NamespaceWP, "docPr") {
			id++
			e.SetAttr("", "id", strconv.Itoa(id))
		}
		return true
	})
}
