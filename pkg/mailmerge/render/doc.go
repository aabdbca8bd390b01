// Package render provides the text-node level substitution used by the merge engine.
//
// This package contains pure helper functions that operate on the xml package tree
// without depending on the main mailmerge package, avoiding circular dependencies.
//
// # Structure Organization
//
//   - placeholder.go: Placeholder pattern, token search and delimiter checks
//   - substitute.go: Paragraph substitution across split runs, line break expansion
//
// # Split Placeholders
//
// Word splits text into runs whenever formatting, proofing state or revision ids change,
// so a placeholder typed as {FIRST_NAME} can be stored as three runs: "{", "FIRST_",
// "NAME}". Substitution therefore works on the flattened text of a paragraph and maps
// every match back onto the text nodes it covers. The replacement is written into the
// text node where the placeholder starts, keeping that run's formatting; the characters
// of the placeholder are removed from the other nodes. Sibling markup is never touched.
//
// Example:
//
//	n, err := render.SubstituteParagraph(para, func(name string) (string, bool) {
//	    v, ok := values[name]
//	    return v, ok
//	}, render.Options{LineBreaks: true})
package render
