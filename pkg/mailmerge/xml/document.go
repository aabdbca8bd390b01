package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Document is a parsed XML part
type Document struct {
	// Prolog holds the nodes before the root element (XML declaration, comments, whitespace)
	Prolog []Node
	Root   *Element
	// Epilog holds the nodes after the root element
	Epilog []Node
}

// ParseBytes parses an XML part held in memory
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// Parse parses an XML part into a lossless tree.
// Mismatched or unclosed elements are reported as errors.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = true
	decoder.CharsetReader = charsetReader

	doc := &Document{}
	var stack []*Element
	var scopes []map[string]string

	for {
		token, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			scope := declaredNamespaces(t.Attr)
			scopes = append(scopes, scope)

			el := &Element{
				Name:  Name{Prefix: t.Name.Space, Local: t.Name.Local},
				Attrs: make([]Attr, len(t.Attr)),
			}
			el.Name.Space = resolvePrefix(scopes, t.Name.Space)
			for i, a := range t.Attr {
				el.Attrs[i] = Attr{
					Name:  Name{Prefix: a.Name.Space, Local: a.Name.Local},
					Value: a.Value,
				}
				if a.Name.Space != "" && a.Name.Space != "xmlns" {
					el.Attrs[i].Name.Space = resolvePrefix(scopes, a.Name.Space)
				}
			}

			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fmt.Errorf("failed to parse document: multiple root elements (%s)", el.Name)
				}
				doc.Root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("failed to parse document: unexpected end element </%s>", rawName(t.Name))
			}
			top := stack[len(stack)-1]
			if top.Name.Prefix != t.Name.Space || top.Name.Local != t.Name.Local {
				return nil, fmt.Errorf("failed to parse document: element <%s> closed by </%s>", top.Name, rawName(t.Name))
			}
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]

		case xml.CharData:
			doc.appendNode(stack, CharData(string(t)))
		case xml.Comment:
			doc.appendNode(stack, Comment(string(t)))
		case xml.ProcInst:
			doc.appendNode(stack, ProcInst{Target: t.Target, Inst: string(t.Inst)})
		case xml.Directive:
			doc.appendNode(stack, Directive(string(t)))
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("failed to parse document: unexpected EOF, <%s> is not closed", stack[len(stack)-1].Name)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("failed to parse document: no root element")
	}

	return doc, nil
}

// appendNode attaches a non-element node to the open element, or to the prolog/epilog
func (doc *Document) appendNode(stack []*Element, n Node) {
	if len(stack) > 0 {
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, n)
		return
	}
	if doc.Root == nil {
		doc.Prolog = append(doc.Prolog, n)
	} else {
		doc.Epilog = append(doc.Epilog, n)
	}
}

// declaredNamespaces collects xmlns declarations from a start element's attributes.
// The default namespace is stored under the empty prefix.
func declaredNamespaces(attrs []xml.Attr) map[string]string {
	var scope map[string]string
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			if scope == nil {
				scope = make(map[string]string)
			}
			scope[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			if scope == nil {
				scope = make(map[string]string)
			}
			scope[""] = a.Value
		}
	}
	return scope
}

// resolvePrefix finds the namespace URI bound to prefix in the innermost scope
func resolvePrefix(scopes []map[string]string, prefix string) string {
	if prefix == "xml" {
		return NamespaceXML
	}
	for i := len(scopes) - 1; i >= 0; i-- {
		if uri, ok := scopes[i][prefix]; ok {
			return uri
		}
	}
	return ""
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// charsetReader decodes parts that declare a non UTF-8 encoding
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// Namespaces returns the namespace declarations on the root element, keyed by prefix.
// The default namespace is keyed by the empty string.
func (doc *Document) Namespaces() map[string]string {
	if doc.Root == nil {
		return nil
	}
	ns := declaredNamespaces(toStdAttrs(doc.Root.Attrs))
	if ns == nil {
		ns = make(map[string]string)
	}
	return ns
}

// MergeNamespaces declares on the root element every prefix from other that the root
// does not declare yet. A prefix bound to a different URI on both sides is a conflict.
func (doc *Document) MergeNamespaces(other map[string]string) error {
	current := doc.Namespaces()
	for prefix, uri := range other {
		existing, ok := current[prefix]
		if ok {
			if existing != uri {
				return fmt.Errorf("namespace prefix %q bound to %q, cannot rebind to %q", prefix, existing, uri)
			}
			continue
		}
		if prefix == "" {
			doc.Root.Attrs = append(doc.Root.Attrs, Attr{Name: Name{Local: "xmlns"}, Value: uri})
		} else {
			doc.Root.Attrs = append(doc.Root.Attrs, Attr{Name: Name{Prefix: "xmlns", Local: prefix}, Value: uri})
		}
		current[prefix] = uri
	}
	return nil
}

// PrefixFor returns the prefix the root element binds to uri, or fallback when none does
func (doc *Document) PrefixFor(uri, fallback string) string {
	for prefix, u := range doc.Namespaces() {
		if u == uri {
			return prefix
		}
	}
	return fallback
}

func toStdAttrs(attrs []Attr) []xml.Attr {
	out := make([]xml.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = xml.Attr{Name: xml.Name{Space: a.Name.Prefix, Local: a.Name.Local}, Value: a.Value}
	}
	return out
}

// Body returns the w:body view of a main document part, or nil when the part has no body
func (doc *Document) Body() *Body {
	if doc.Root == nil {
		return nil
	}
	if b := doc.Root.FirstW("body"); b != nil {
		return &Body{Element: b}
	}
	return nil
}

// Paragraphs returns every paragraph in the part, including paragraphs nested in
// tables and text boxes, in document order
func (doc *Document) Paragraphs() []*Paragraph {
	if doc.Root == nil {
		return nil
	}
	return CollectParagraphs(doc.Root)
}

// FlatText returns the flattened text of the part, one line per paragraph
func (doc *Document) FlatText() string {
	paras := doc.Paragraphs()
	texts := make([]string, len(paras))
	for i, p := range paras {
		texts[i] = p.Text()
	}
	return strings.Join(texts, "\n")
}

var encodingDecl = regexp.MustCompile(`encoding\s*=\s*("[^"]*"|'[^']*')`)

// Marshal serializes the document. The XML declaration, if any, always announces UTF-8
// since that is what is written.
func (doc *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the serialized document to w
func (doc *Document) WriteTo(w io.Writer) (int64, error) {
	if doc.Root == nil {
		return 0, fmt.Errorf("cannot serialize document without root element")
	}
	ew := &errWriter{w: w}
	for _, n := range doc.Prolog {
		writeNode(ew, n)
	}
	writeNode(ew, doc.Root)
	for _, n := range doc.Epilog {
		writeNode(ew, n)
	}
	return ew.n, ew.err
}

// MarshalElement serializes a single element and its descendants
func MarshalElement(e *Element) []byte {
	var buf bytes.Buffer
	writeNode(&errWriter{w: &buf}, e)
	return buf.Bytes()
}

type errWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	n, err := io.WriteString(ew.w, s)
	ew.n += int64(n)
	ew.err = err
}

func writeNode(w *errWriter, n Node) {
	switch t := n.(type) {
	case *Element:
		w.WriteString("<")
		w.WriteString(t.Name.String())
		for _, a := range t.Attrs {
			w.WriteString(" ")
			w.WriteString(a.Name.String())
			w.WriteString(`="`)
			w.WriteString(escape(a.Value, true))
			w.WriteString(`"`)
		}
		if len(t.Children) == 0 {
			w.WriteString("/>")
			return
		}
		w.WriteString(">")
		for _, c := range t.Children {
			writeNode(w, c)
		}
		w.WriteString("</")
		w.WriteString(t.Name.String())
		w.WriteString(">")
	case CharData:
		w.WriteString(escape(string(t), false))
	case Comment:
		w.WriteString("<!--")
		w.WriteString(string(t))
		w.WriteString("-->")
	case ProcInst:
		inst := t.Inst
		if t.Target == "xml" {
			inst = encodingDecl.ReplaceAllString(inst, `encoding="UTF-8"`)
		}
		w.WriteString("<?")
		w.WriteString(t.Target)
		if inst != "" {
			w.WriteString(" ")
			w.WriteString(inst)
		}
		w.WriteString("?>")
	case Directive:
		w.WriteString("<!")
		w.WriteString(string(t))
		w.WriteString(">")
	}
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
		"\t", "&#x9;", "\n", "&#xA;", "\r", "&#xD;")
)

func escape(s string, attr bool) string {
	if attr {
		return attrEscaper.Replace(s)
	}
	return textEscaper.Replace(s)
}
