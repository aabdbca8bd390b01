package xml

import "strings"

// Paragraph is the view of a w:p element
type Paragraph struct {
	*Element
}

// TextNode is a w:t element together with the run that contains it
type TextNode struct {
	*Element
	Run *Element
}

// CollectParagraphs returns every w:p below root in document order.
// Paragraphs nested in text boxes are returned after the paragraph that contains them.
func CollectParagraphs(root *Element) []*Paragraph {
	var paras []*Paragraph
	root.Walk(func(e *Element) bool {
		if e.IsW("p") {
			paras = append(paras, &Paragraph{Element: e})
		}
		return true
	})
	return paras
}

// TextNodes returns the w:t elements that belong to this paragraph in document order.
// Text in paragraphs nested below this one (text boxes) is not included.
func (p *Paragraph) TextNodes() []TextNode {
	var nodes []TextNode
	var visit func(parent *Element)
	visit = func(parent *Element) {
		for _, c := range parent.Children {
			el, ok := c.(*Element)
			if !ok {
				continue
			}
			switch {
			case el.IsW("p"):
				// nested paragraph, handled on its own
			case el.IsW("t"):
				nodes = append(nodes, TextNode{Element: el, Run: parent})
			default:
				visit(el)
			}
		}
	}
	visit(p.Element)
	return nodes
}

// Text returns the flattened text of the paragraph
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, t := range p.TextNodes() {
		sb.WriteString(t.Text())
	}
	return sb.String()
}
