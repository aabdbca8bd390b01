package mailmerge

import (
	"strings"
	"time"
)

// SuggestFilename returns merged-document-YYYY-MM-DDTHH-MM-SS.<ext> for t in UTC.
// A leading dot in ext is ignored; an empty ext defaults to docx.
func SuggestFilename(t time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "docx"
	}
	return "merged-document-" + t.UTC().Format("2006-01-02T15-04-05") + "." + ext
}
