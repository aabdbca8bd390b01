package mailmerge

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies merge failures
type ErrorKind string

const (
	// KindInvalidTemplate: the archive cannot be opened or its body part is missing or unreadable
	KindInvalidTemplate ErrorKind = "InvalidTemplate"
	// KindNoPlaceholdersFound: the template is readable but contains no placeholder
	KindNoPlaceholdersFound ErrorKind = "NoPlaceholdersFound"
	// KindIncompleteMapping: some placeholder has no column assigned
	KindIncompleteMapping ErrorKind = "IncompleteMapping"
	// KindRenderError: substitution failed for a row
	KindRenderError ErrorKind = "RenderError"
	// KindMergeError: the carrier document is unreadable or the output cannot be serialized
	KindMergeError ErrorKind = "MergeError"
	// KindEmptyInput: there is nothing to concatenate
	KindEmptyInput ErrorKind = "EmptyInput"
)

var (
	// ErrMalformedArchive is returned by Open when the bytes are not a readable zip archive
	ErrMalformedArchive = errors.New("malformed archive")
	// ErrPartNotFound is returned when a named part does not exist in an archive
	ErrPartNotFound = errors.New("part not found")
)

// Sentinels for errors.Is matching on the error kind
var (
	ErrInvalidTemplate     = &Error{Kind: KindInvalidTemplate}
	ErrNoPlaceholdersFound = &Error{Kind: KindNoPlaceholdersFound}
	ErrIncompleteMapping   = &Error{Kind: KindIncompleteMapping}
	ErrRenderError         = &Error{Kind: KindRenderError}
	ErrMergeError          = &Error{Kind: KindMergeError}
	ErrEmptyInput          = &Error{Kind: KindEmptyInput}
)

// Error is a merge failure of a given kind
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed, e.g. "open", "scan", "concatenate"
	Op string
	// Row is the 1-based row number for render errors, 0 otherwise
	Row int
	// Placeholders lists the unmapped placeholders for incomplete mappings
	Placeholders []string
	Cause        error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindInvalidTemplate:
		msg = "invalid template"
	case KindNoPlaceholdersFound:
		msg = "no placeholders found in template"
	case KindIncompleteMapping:
		msg = "incomplete mapping"
		if len(e.Placeholders) > 0 {
			msg += ": no column assigned to " + strings.Join(e.Placeholders, ", ")
		}
	case KindRenderError:
		msg = "render error"
		if e.Row > 0 {
			msg = fmt.Sprintf("render error in row %d", e.Row)
		}
	case KindMergeError:
		msg = "merge error"
	case KindEmptyInput:
		msg = "empty input: no documents to concatenate"
	default:
		msg = string(e.Kind)
	}

	if e.Op != "" && e.Kind != KindRenderError {
		msg += " during " + e.Op
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels (ErrInvalidTemplate, ErrRenderError, ...)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Op == "" && t.Row == 0 && t.Cause == nil && t.Placeholders == nil && t.Kind == e.Kind
}

// NewError creates a merge error of the given kind
func NewError(kind ErrorKind, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none
func KindOf(err error) ErrorKind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// IsInvalidTemplate checks if an error is an invalid template error
func IsInvalidTemplate(err error) bool {
	return errors.Is(err, ErrInvalidTemplate)
}

// IsNoPlaceholdersFound checks if an error reports a template without placeholders
func IsNoPlaceholdersFound(err error) bool {
	return errors.Is(err, ErrNoPlaceholdersFound)
}

// IsIncompleteMapping checks if an error is an incomplete mapping error
func IsIncompleteMapping(err error) bool {
	return errors.Is(err, ErrIncompleteMapping)
}

// IsRenderError checks if an error is a render error
func IsRenderError(err error) bool {
	return errors.Is(err, ErrRenderError)
}

// IsMergeError checks if an error is a merge error
func IsMergeError(err error) bool {
	return errors.Is(err, ErrMergeError)
}

// IsEmptyInput checks if an error is an empty input error
func IsEmptyInput(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}
