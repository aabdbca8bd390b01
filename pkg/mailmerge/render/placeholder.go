package render

import (
	"fmt"
	"regexp"
	"strings"
)

// PlaceholderPattern matches a placeholder: an opening brace, one or more characters
// other than a closing brace, and a closing brace
var PlaceholderPattern = regexp.MustCompile(`\{[^}]+\}`)

// FindPlaceholders returns every placeholder in text, left to right, including duplicates
func FindPlaceholders(text string) []string {
	return PlaceholderPattern.FindAllString(text, -1)
}

// TokenName strips the delimiters from a placeholder: "{NAME}" becomes "NAME"
func TokenName(placeholder string) string {
	return strings.TrimSuffix(strings.TrimPrefix(placeholder, "{"), "}")
}

// DelimiterError describes an unbalanced brace in a paragraph's text
type DelimiterError struct {
	Text     string
	Position int
	Message  string
}

func (e *DelimiterError) Error() string {
	return fmt.Sprintf("%s at position %d in %q", e.Message, e.Position, e.Text)
}

// CheckDelimiters reports the first unbalanced brace in text: a nested or unclosed
// opening brace, a closing brace with no opening brace, or an empty placeholder
func CheckDelimiters(text string) error {
	open := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if open >= 0 {
				return &DelimiterError{Text: text, Position: i, Message: "nested '{'"}
			}
			open = i
		case '}':
			if open < 0 {
				return &DelimiterError{Text: text, Position: i, Message: "unopened '}'"}
			}
			if i == open+1 {
				return &DelimiterError{Text: text, Position: open, Message: "empty placeholder"}
			}
			open = -1
		}
	}
	if open >= 0 {
		return &DelimiterError{Text: text, Position: open, Message: "unclosed '{'"}
	}
	return nil
}
