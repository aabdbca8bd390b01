// Package mailmerge merges tabular records into DOCX templates.
//
// A template is an ordinary Word document containing placeholders written as {NAME}.
// Each record (a Row) is rendered into its own copy of the template, and the copies are
// either returned one per row or concatenated into a single document with a page break
// between consecutive rows.
//
// Basic Usage:
//
//	template, err := os.ReadFile("letter.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	placeholders, err := mailmerge.ExtractPlaceholders(template)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// placeholders: [{FIRST_NAME} {LAST_NAME}]
//
//	rows := []mailmerge.Row{
//	    {"First": "John", "Last": "Smith"},
//	    {"First": "Jane", "Last": "Doe"},
//	}
//	mapping := mailmerge.Mapping{
//	    "{FIRST_NAME}": "First",
//	    "{LAST_NAME}":  "Last",
//	}
//
//	merged, err := mailmerge.GenerateMerged(ctx, template, rows, mapping)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(mailmerge.SuggestFilename(time.Now(), "docx"), merged, 0o644)
//
// Pipeline:
//
// ExtractPlaceholders scans the template. GenerateMerged and GenerateSeparate refuse to
// start when the template has no placeholders or when the mapping leaves one of them
// unassigned. Rows are then rendered in order (optionally in parallel, see
// Config.Workers) and, for a merged output, concatenated with the first rendered
// document as the carrier of styles, headers, footers and section properties.
//
// Placeholders:
//
// A placeholder is an opening brace, one or more characters other than a closing
// brace, and a closing brace. Matching happens on the text of each paragraph, so a
// placeholder split across differently formatted runs is still found and replaced;
// a placeholder never spans two paragraphs. Placeholders that are not in the mapping
// are left untouched.
//
// Errors:
//
// Every failure of the pipeline is an *Error whose Kind can be tested with errors.Is
// against ErrInvalidTemplate, ErrNoPlaceholdersFound, ErrIncompleteMapping,
// ErrRenderError, ErrMergeError and ErrEmptyInput, or with the IsXxx helpers.
package mailmerge
