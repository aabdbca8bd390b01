package xml

// NewW creates an empty WordprocessingML element using the given prefix for the w namespace
func NewW(prefix, local string, attrs ...Attr) *Element {
	return &Element{
		Name:  Name{Prefix: prefix, Local: local, Space: NamespaceW},
		Attrs: attrs,
	}
}

// WAttr creates a WordprocessingML attribute
func WAttr(prefix, local, value string) Attr {
	return Attr{Name: Name{Prefix: prefix, Local: local, Space: NamespaceW}, Value: value}
}

// NewPageBreakParagraph returns <w:p><w:r><w:br w:type="page"/></w:r></w:p>
func NewPageBreakParagraph(prefix string) *Element {
	br := NewW(prefix, "br", WAttr(prefix, "type", "page"))
	run := NewW(prefix, "r")
	run.Children = []Node{br}
	para := NewW(prefix, "p")
	para.Children = []Node{run}
	return para
}

// IsPageBreakParagraph reports whether e is a paragraph holding only a page break,
// as produced by NewPageBreakParagraph
func IsPageBreakParagraph(e *Element) bool {
	if !e.IsW("p") {
		return false
	}
	runs := e.ChildElements()
	if len(runs) != 1 || !runs[0].IsW("r") {
		return false
	}
	inner := runs[0].ChildElements()
	if len(inner) != 1 || !inner[0].IsW("br") {
		return false
	}
	t, _ := inner[0].Attr("type")
	return t == "page"
}

// NewSibling creates an element named like ref but with another local name.
// New elements inside a run reuse the run's own prefix so they resolve identically.
func NewSibling(ref *Element, local string) *Element {
	return &Element{Name: Name{Prefix: ref.Name.Prefix, Local: local, Space: ref.Name.Space}}
}
