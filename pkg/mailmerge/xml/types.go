package xml

import "strings"

const (
	// NamespaceW is the WordprocessingML main namespace (transitional).
	NamespaceW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	// NamespaceWStrict is the WordprocessingML main namespace used by strict OOXML.
	NamespaceWStrict = "http://purl.oclc.org/ooxml/wordprocessingml/main"
	// NamespaceWP is the DrawingML WordprocessingDrawing namespace (wp:docPr and friends).
	NamespaceWP = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	// NamespaceXML is the reserved namespace bound to the xml prefix.
	NamespaceXML = "http://www.w3.org/XML/1998/namespace"
)

// IsWordNamespace reports whether uri is one of the WordprocessingML main namespaces
func IsWordNamespace(uri string) bool {
	return uri == NamespaceW || uri == NamespaceWStrict
}

// Node is any item that can appear in a part's tree
type Node interface {
	isNode()
}

// Name is an element or attribute name.
// Prefix is the prefix as written in the source; Space is the namespace URI it resolved to.
type Name struct {
	Prefix string
	Local  string
	Space  string
}

// String returns the qualified name as it is serialized
func (n Name) String() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// Attr is an attribute. Attribute names keep their prefix; Space is resolved only for
// prefixed attributes.
type Attr struct {
	Name  Name
	Value string
}

// Element is an XML element with its ordered children
type Element struct {
	Name     Name
	Attrs    []Attr
	Children []Node
}

// CharData is character data, already unescaped
type CharData string

// Comment is an XML comment without the <!-- --> delimiters
type Comment string

// ProcInst is a processing instruction such as the XML declaration
type ProcInst struct {
	Target string
	Inst   string
}

// Directive is a <!...> directive without the delimiters
type Directive string

func (*Element) isNode()  {}
func (CharData) isNode()  {}
func (Comment) isNode()   {}
func (ProcInst) isNode()  {}
func (Directive) isNode() {}

// IsW reports whether e is the WordprocessingML element with the given local name
func (e *Element) IsW(local string) bool {
	return e != nil && e.Name.Local == local && IsWordNamespace(e.Name.Space)
}

// Is reports whether e has the given namespace URI and local name
func (e *Element) Is(space, local string) bool {
	return e != nil && e.Name.Local == local && e.Name.Space == space
}

// Attr returns the value of the first attribute with the given local name
func (e *Element) Attr(local string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, replacing an existing one with the same prefix and local name
func (e *Element) SetAttr(prefix, local, value string) {
	for i, a := range e.Attrs {
		if a.Name.Prefix == prefix && a.Name.Local == local {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: Name{Prefix: prefix, Local: local}, Value: value})
}

// ChildElements returns the element children of e in order
func (e *Element) ChildElements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// FirstW returns the first WordprocessingML child element with the given local name
func (e *Element) FirstW(local string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.IsW(local) {
			return el
		}
	}
	return nil
}

// Text returns the concatenated character data directly below e
func (e *Element) Text() string {
	var sb strings.Builder
	for _, c := range e.Children {
		if cd, ok := c.(CharData); ok {
			sb.WriteString(string(cd))
		}
	}
	return sb.String()
}

// SetText replaces the children of e with a single character data node.
// Leading or trailing whitespace is protected with xml:space="preserve".
func (e *Element) SetText(s string) {
	if s == "" {
		e.Children = nil
	} else {
		e.Children = []Node{CharData(s)}
	}
	if strings.TrimSpace(s) != s {
		e.SetAttr("xml", "space", "preserve")
	}
}

// Walk visits e and its descendants in document order.
// Returning false from fn skips the children of the visited element.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			el.Walk(fn)
		}
	}
}

// Clone returns a deep copy of e
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := &Element{Name: e.Name}
	if len(e.Attrs) > 0 {
		out.Attrs = make([]Attr, len(e.Attrs))
		copy(out.Attrs, e.Attrs)
	}
	if len(e.Children) > 0 {
		out.Children = make([]Node, len(e.Children))
		for i, c := range e.Children {
			if el, ok := c.(*Element); ok {
				out.Children[i] = el.Clone()
			} else {
				out.Children[i] = c
			}
		}
	}
	return out
}

// indexOf returns the position of child in e.Children, or -1
func (e *Element) indexOf(child *Element) int {
	for i, c := range e.Children {
		if el, ok := c.(*Element); ok && el == child {
			return i
		}
	}
	return -1
}

// InsertAfter inserts nodes directly after the child element ref.
// It returns false when ref is not a child of e.
func (e *Element) InsertAfter(ref *Element, nodes ...Node) bool {
	idx := e.indexOf(ref)
	if idx < 0 {
		return false
	}
	rest := append([]Node{}, e.Children[idx+1:]...)
	e.Children = append(append(e.Children[:idx+1], nodes...), rest...)
	return true
}
