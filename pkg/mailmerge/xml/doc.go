// Package xml provides a lossless tree model for the XML parts of a DOCX package.
//
// A DOCX file is a ZIP archive whose parts are XML documents. The main part,
// word/document.xml, holds the document body: a sequence of block-level elements
// (paragraphs, tables, structured document tags) followed by the body's section
// properties. Headers and footers use the same paragraph and run vocabulary.
//
// # Structure Organization
//
//   - types.go: Node kinds (Element, CharData, Comment, ProcInst, Directive), names and attributes
//   - document.go: Document parsing and serialization, namespace resolution
//   - body.go: Body view with block-level node-list operations
//   - paragraph.go: Paragraph view, text nodes and flattened text
//   - run.go: Constructors for runs, breaks and page-break paragraphs
//
// # Key Concepts
//
// Element: every XML element is kept, including the ones the merge engine never
// inspects (drawings, fields, revision marks). Attribute order and namespace prefixes
// are preserved, so a part survives a parse/serialize round trip structurally intact.
//
// Body: the block-level view of w:body. Concatenating documents is a node-list
// operation on Body (Append) instead of string surgery on the serialized markup.
//
// Paragraph: the unit over which text is flattened. Word frequently splits a single
// word across several runs (w:r) when formatting, spell-check state or revision ids
// change, so the flattened text of a paragraph is the concatenation of the content of
// all its w:t nodes in document order.
//
// # Usage
//
//	doc, err := xml.ParseBytes(documentXML)
//	if err != nil {
//	    return err
//	}
//	for _, p := range doc.Paragraphs() {
//	    fmt.Println(p.Text())
//	}
//	out, err := doc.Marshal()
//
// # XML Namespaces
//
// Element names are resolved against the namespace declarations in scope while
// parsing. Name.Space holds the namespace URI and Name.Prefix the prefix as written.
// Matching is done on the URI (see Element.IsW), so a DrawingML a:t is never mistaken
// for a WordprocessingML w:t.
package xml
