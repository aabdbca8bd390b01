package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wDecl = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document ` + wDecl + `><w:body>` + body + `</w:body></w:document>`
}

func TestParseMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "simple paragraph",
			input: wrapBody(`<w:p><w:r><w:t>Hello</w:t></w:r></w:p>`),
		},
		{
			name:  "escaped text",
			input: wrapBody(`<w:p><w:r><w:t>a &amp; b &lt;c&gt;</w:t></w:r></w:p>`),
		},
		{
			name:  "empty elements and attributes",
			input: wrapBody(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve"> x </w:t></w:r></w:p><w:sectPr/>`),
		},
		{
			name:  "comments and unknown elements",
			input: wrapBody(`<!-- note --><w:p><w:customXml w:element="x"><w:r><w:t>y</w:t></w:r></w:customXml></w:p>`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseBytes([]byte(tt.input))
			require.NoError(t, err)

			out, err := doc.Marshal()
			require.NoError(t, err)
			assert.Equal(t, tt.input, string(out))
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"mismatched end", `<w:document ` + wDecl + `><w:body></w:document>`, "closed by"},
		{"unclosed element", `<w:document ` + wDecl + `><w:body>`, "not closed"},
		{"no root", `<?xml version="1.0"?>`, "no root element"},
		{"not xml", `{"a": 1}`, "failed to parse document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNamespaceResolution(t *testing.T) {
	input := `<w:document ` + wDecl + ` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>visible</w:t></w:r><w:r><w:drawing><a:t>hidden</a:t></w:drawing></w:r></w:p>` +
		`</w:body></w:document>`

	doc, err := ParseBytes([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, NamespaceW, doc.Root.Name.Space)
	assert.Equal(t, "w", doc.Root.Name.Prefix)

	paras := doc.Paragraphs()
	require.Len(t, paras, 1)
	assert.Equal(t, "visible", paras[0].Text())
}

func TestCustomPrefixIsStillWordprocessingML(t *testing.T) {
	input := `<x:document xmlns:x="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><x:body>` +
		`<x:p><x:r><x:t>custom</x:t></x:r></x:p></x:body></x:document>`

	doc, err := ParseBytes([]byte(input))
	require.NoError(t, err)
	require.NotNil(t, doc.Body())
	assert.Equal(t, "custom", doc.FlatText())
	assert.Equal(t, "x", doc.PrefixFor(NamespaceW, "w"))
}

func TestTextBoxParagraphsAreSeparate(t *testing.T) {
	input := wrapBody(`<w:p><w:r><w:t>outer {A</w:t></w:r><w:r><w:pict><w:txbxContent>` +
		`<w:p><w:r><w:t>inner</w:t></w:r></w:p>` +
		`</w:txbxContent></w:pict></w:r><w:r><w:t>}</w:t></w:r></w:p>`)

	doc, err := ParseBytes([]byte(input))
	require.NoError(t, err)

	paras := doc.Paragraphs()
	require.Len(t, paras, 2)
	assert.Equal(t, "outer {A}", paras[0].Text())
	assert.Equal(t, "inner", paras[1].Text())
	assert.Equal(t, "outer {A}\ninner", doc.FlatText())
}

func TestCharsetDecoding(t *testing.T) {
	input := []byte(`<?xml version="1.0" encoding="ISO-8859-1"?>` +
		`<w:document ` + wDecl + `><w:body><w:p><w:r><w:t>caf` + "\xe9" + `</w:t></w:r></w:p></w:body></w:document>`)

	doc, err := ParseBytes(input)
	require.NoError(t, err)
	assert.Equal(t, "café", doc.FlatText())

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(out), "café")
}

func TestMergeNamespaces(t *testing.T) {
	doc, err := ParseBytes([]byte(`<w:document ` + wDecl + `><w:body/></w:document>`))
	require.NoError(t, err)

	err = doc.MergeNamespaces(map[string]string{
		"w":  NamespaceW,
		"wp": NamespaceWP,
	})
	require.NoError(t, err)

	ns := doc.Namespaces()
	assert.Equal(t, NamespaceW, ns["w"])
	assert.Equal(t, NamespaceWP, ns["wp"])

	err = doc.MergeNamespaces(map[string]string{"wp": "urn:other"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot rebind")
}

func TestBodyAppendKeepsSectionPropertiesLast(t *testing.T) {
	doc, err := ParseBytes([]byte(wrapBody(`<w:p><w:r><w:t>one</w:t></w:r></w:p><w:sectPr><w:pgSz w:w="12240"/></w:sectPr>`)))
	require.NoError(t, err)

	body := doc.Body()
	require.NotNil(t, body)
	require.NotNil(t, body.SectionProperties())
	require.Len(t, body.Blocks(), 1)

	body.Append(NewPageBreakParagraph("w"), NewW("w", "p"))

	children := body.ChildElements()
	require.Len(t, children, 4)
	assert.True(t, children[0].IsW("p"))
	assert.True(t, IsPageBreakParagraph(children[1]))
	assert.True(t, children[2].IsW("p"))
	assert.True(t, children[3].IsW("sectPr"))
	assert.Len(t, body.Blocks(), 3)
}

func TestBodyAppendWithoutSectionProperties(t *testing.T) {
	doc, err := ParseBytes([]byte(wrapBody(`<w:p/>`)))
	require.NoError(t, err)

	body := doc.Body()
	assert.Nil(t, body.SectionProperties())
	body.Append(NewW("w", "tbl"))

	children := body.ChildElements()
	require.Len(t, children, 2)
	assert.True(t, children[1].IsW("tbl"))
}

func TestNewPageBreakParagraphSerialization(t *testing.T) {
	assert.Equal(t, `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`, string(MarshalElement(NewPageBreakParagraph("w"))))
}

func TestElementSetText(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantPreserve bool
	}{
		{"plain", "Alice", false},
		{"leading space", " Alice", true},
		{"trailing space", "Alice ", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := NewW("w", "t")
			el.SetText(tt.text)
			assert.Equal(t, tt.text, el.Text())
			v, ok := el.Attr("space")
			assert.Equal(t, tt.wantPreserve, ok)
			if tt.wantPreserve {
				assert.Equal(t, "preserve", v)
			}
		})
	}
}

func TestElementCloneIsDeep(t *testing.T) {
	doc, err := ParseBytes([]byte(wrapBody(`<w:p><w:r><w:t>a</w:t></w:r></w:p>`)))
	require.NoError(t, err)

	original := doc.Body().Blocks()[0]
	clone := original.Clone()

	p := &Paragraph{Element: clone}
	p.TextNodes()[0].SetText("b")
	clone.SetAttr("w", "rsidR", "00AB")

	assert.Equal(t, "a", (&Paragraph{Element: original}).Text())
	_, ok := original.Attr("rsidR")
	assert.False(t, ok)
}
