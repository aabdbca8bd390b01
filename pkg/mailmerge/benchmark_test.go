package mailmerge

import (
	"context"
	"fmt"
	"strings"
	"testing"

	mmt "github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/mailmergetest"
)

// benchmarkTemplate is a one page letter with split placeholders and a table
func benchmarkTemplate() []byte {
	var body strings.Builder
	body.WriteString(mmt.Paragraph("{COMPANY}"))
	body.WriteString(mmt.Paragraph("Dear {FIR", "ST_NAME} {LAST_NAME},"))
	for i := 0; i < 20; i++ {
		body.WriteString(mmt.Paragraph("Your order {ORDER} ships to {CITY}. Lorem ipsum dolor sit amet."))
	}
	body.WriteString(`<w:tbl><w:tr><w:tc>` + mmt.Paragraph("{AMOUNT}") + `</w:tc></w:tr></w:tbl>`)
	body.WriteString(mmt.SectPr)
	return mmt.Docx(body.String())
}

var benchmarkMapping = Mapping{
	"{COMPANY}":    "company",
	"{FIRST_NAME}": "first",
	"{LAST_NAME}":  "last",
	"{ORDER}":      "order",
	"{CITY}":       "city",
	"{AMOUNT}":     "amount",
}

func benchmarkRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			"company": "ACME Corp",
			"first":   fmt.Sprintf("First%d", i),
			"last":    "Doe",
			"order":   i,
			"city":    "Berlin",
			"amount":  1234.56,
		}
	}
	return rows
}

func BenchmarkExtractPlaceholders(b *testing.B) {
	template := benchmarkTemplate()
	engine := NewWithOptions(WithConfig(&Config{Workers: 1}), WithLogger(discardLogger()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.ExtractPlaceholders(template); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerateMerged(b *testing.B) {
	template := benchmarkTemplate()

	for _, n := range []int{1, 10, 100} {
		for _, workers := range []int{1, 4} {
			b.Run(fmt.Sprintf("rows=%d/workers=%d", n, workers), func(b *testing.B) {
				rows := benchmarkRows(n)
				engine := NewWithOptions(
					WithConfig(&Config{CacheMaxSize: 1, Workers: workers, LineBreaks: true}),
					WithLogger(discardLogger()),
				)

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := engine.GenerateMerged(context.Background(), template, rows, benchmarkMapping); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
