package xml

// Body is the block-level view of a w:body element
type Body struct {
	*Element
}

// SectionProperties returns the body-level w:sectPr, which by schema is the last child
// of the body, or nil when the body has none
func (b *Body) SectionProperties() *Element {
	children := b.ChildElements()
	if len(children) == 0 {
		return nil
	}
	if last := children[len(children)-1]; last.IsW("sectPr") {
		return last
	}
	return nil
}

// Blocks returns the block-level elements of the body in order, excluding the trailing
// section properties
func (b *Body) Blocks() []*Element {
	sectPr := b.SectionProperties()
	var blocks []*Element
	for _, el := range b.ChildElements() {
		if el == sectPr {
			continue
		}
		blocks = append(blocks, el)
	}
	return blocks
}

// Append adds block-level elements at the end of the body, before the trailing
// section properties
func (b *Body) Append(blocks ...*Element) {
	nodes := make([]Node, len(blocks))
	for i, blk := range blocks {
		nodes[i] = blk
	}

	sectPr := b.SectionProperties()
	if sectPr == nil {
		b.Children = append(b.Children, nodes...)
		return
	}
	idx := b.indexOf(sectPr)
	rest := append([]Node{}, b.Children[idx:]...)
	b.Children = append(append(b.Children[:idx], nodes...), rest...)
}
