// Package mailmergetest builds DOCX packages in memory and inspects merge output.
// It is meant for tests of the mailmerge packages and of code using them.
package mailmergetest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/xml"
)

// PageBreak stands for a page-break paragraph in the output of BodyParagraphs
const PageBreak = "\f"

// DocumentNamespaces are declared on the root of documents built by Docx
const DocumentNamespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"`

// SectPr is a body-level section properties element for US Letter pages
const SectPr = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`

// Part is an extra part added to a package
type Part struct {
	Name    string
	Content string
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Paragraph returns a paragraph with one run per argument
func Paragraph(runs ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, r := range runs {
		sb.WriteString(Run(r))
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// Run returns a run holding text
func Run(text string) string {
	return `<w:r><w:t xml:space="preserve">` + textEscaper.Replace(text) + `</w:t></w:r>`
}

// BoldRun returns a bold run holding text
func BoldRun(text string) string {
	return `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + textEscaper.Replace(text) + `</w:t></w:r>`
}

// Document wraps body content in a w:document root
func Document(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document ` + DocumentNamespaces + `><w:body>` + body + `</w:body></w:document>`
}

// HeaderPart returns a header part holding the given paragraphs
func HeaderPart(name string, paragraphs ...string) Part {
	return Part{
		Name: name,
		Content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
			`<w:hdr ` + DocumentNamespaces + `>` + strings.Join(paragraphs, "") + `</w:hdr>`,
	}
}

// Docx builds a package whose body holds the given content
func Docx(body string, parts ...Part) []byte {
	return DocxWithDocument(Document(body), parts...)
}

// DocxWithDocument builds a package around a complete word/document.xml
func DocxWithDocument(documentXML string, parts ...Part) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	write := func(name, content string) {
		f, err := w.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := io.WriteString(f, content); err != nil {
			panic(err)
		}
	}

	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`)
	write("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`)
	write("word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`)
	write("word/document.xml", documentXML)
	for _, p := range parts {
		write(p.Name, p.Content)
	}

	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ReadPart returns the content of a part of a package
func ReadPart(docx []byte, name string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		return "", fmt.Errorf("failed to open package: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("part %s not found", name)
}

// BodyParagraphs returns the text of each top-level paragraph of the body.
// Page-break paragraphs are reported as PageBreak.
func BodyParagraphs(docx []byte) ([]string, error) {
	content, err := ReadPart(docx, "word/document.xml")
	if err != nil {
		return nil, err
	}
	doc, err := xml.ParseBytes([]byte(content))
	if err != nil {
		return nil, err
	}
	body := doc.Body()
	if body == nil {
		return nil, fmt.Errorf("document has no body")
	}

	var out []string
	for _, blk := range body.Blocks() {
		if !blk.IsW("p") {
			continue
		}
		if xml.IsPageBreakParagraph(blk) {
			out = append(out, PageBreak)
			continue
		}
		out = append(out, (&xml.Paragraph{Element: blk}).Text())
	}
	return out, nil
}

// BodyText returns the flattened body text, one line per paragraph
func BodyText(docx []byte) (string, error) {
	content, err := ReadPart(docx, "word/document.xml")
	if err != nil {
		return "", err
	}
	doc, err := xml.ParseBytes([]byte(content))
	if err != nil {
		return "", err
	}
	return doc.FlatText(), nil
}
