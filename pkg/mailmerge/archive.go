package mailmerge

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	// DocumentPart is the main document part holding the body
	DocumentPart = "word/document.xml"
	// ContentTypesPart lists the content types of all parts
	ContentTypesPart = "[Content_Types].xml"
)

var headerFooterPart = regexp.MustCompile(`^word/(header|footer)\d*\.xml$`)

// entry is one named part of an archive
type entry struct {
	name     string
	method   uint16
	modified time.Time
	// data is never modified in place; SetPart swaps the slice, which lets clones share it
	data []byte
}

// Archive is an in-memory DOCX package: an ordered set of named parts.
// Each Open call yields an independent instance.
type Archive struct {
	entries []*entry
	index   map[string]int
}

// Open reads a zip archive. All parts are copied into memory, so the returned archive
// does not alias data.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}

	a := &Archive{index: make(map[string]int, len(zr.File))}
	for _, f := range zr.File {
		if _, dup := a.index[f.Name]; dup {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}
		a.index[f.Name] = len(a.entries)
		a.entries = append(a.entries, &entry{
			name:     f.Name,
			method:   f.Method,
			modified: f.Modified,
			data:     content,
		})
	}

	return a, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
	}
	return content, nil
}

// GetPart returns the content of a part
func (a *Archive) GetPart(name string) (string, error) {
	data, err := a.GetPartBytes(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetPartBytes returns the content of a part without converting it.
// The returned slice must not be modified.
func (a *Archive) GetPartBytes(name string) ([]byte, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	return a.entries[i].data, nil
}

// HasPart reports whether the archive contains a part
func (a *Archive) HasPart(name string) bool {
	_, ok := a.index[name]
	return ok
}

// SetPart replaces the content of a part, or appends a new deflated part.
// New parts are not registered in [Content_Types].xml.
func (a *Archive) SetPart(name, text string) {
	a.SetPartBytes(name, []byte(text))
}

// SetPartBytes is SetPart for binary content. The archive takes ownership of data.
func (a *Archive) SetPartBytes(name string, data []byte) {
	if i, ok := a.index[name]; ok {
		updated := *a.entries[i]
		updated.data = data
		a.entries[i] = &updated
		return
	}
	if a.index == nil {
		a.index = make(map[string]int)
	}
	a.index[name] = len(a.entries)
	a.entries = append(a.entries, &entry{name: name, method: zip.Deflate, data: data})
}

// DeletePart removes a part; deleting a missing part is a no-op
func (a *Archive) DeletePart(name string) {
	i, ok := a.index[name]
	if !ok {
		return
	}
	a.entries = append(a.entries[:i], a.entries[i+1:]...)
	delete(a.index, name)
	for j := i; j < len(a.entries); j++ {
		a.index[a.entries[j].name] = j
	}
}

// Parts returns the part names in archive order
func (a *Archive) Parts() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// HeaderFooterParts returns the header and footer part names, sorted
func (a *Archive) HeaderFooterParts() []string {
	var names []string
	for _, e := range a.entries {
		if headerFooterPart.MatchString(e.name) {
			names = append(names, e.name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the archive
func (a *Archive) Clone() *Archive {
	c := &Archive{
		entries: make([]*entry, len(a.entries)),
		index:   make(map[string]int, len(a.index)),
	}
	for i, e := range a.entries {
		cp := *e
		c.entries[i] = &cp
	}
	for k, v := range a.index {
		c.index[k] = v
	}
	return c
}

// Serialize writes the archive as a zip file. [Content_Types].xml is written first;
// the other parts keep their order and compression method.
func (a *Archive) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the serialized archive to w
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	ordered := make([]*entry, 0, len(a.entries))
	if i, ok := a.index[ContentTypesPart]; ok {
		ordered = append(ordered, a.entries[i])
	}
	for _, e := range a.entries {
		if e.name != ContentTypesPart {
			ordered = append(ordered, e)
		}
	}

	for _, e := range ordered {
		method := e.method
		if method != zip.Store {
			method = zip.Deflate
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   method,
			Modified: e.modified,
		})
		if err != nil {
			return cw.n, fmt.Errorf("failed to create %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return cw.n, fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
