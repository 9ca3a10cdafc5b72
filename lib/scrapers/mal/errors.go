package mal

import "fmt"

// ParseErrorKind classifies why a field could not be extracted from a page.
type ParseErrorKind int

const (
	// KindMissingElement means the label anchoring the field could not be
	// located at all. Usually the page layout changed.
	KindMissingElement ParseErrorKind = iota
	// KindBadContent means the label was found but its value violates the
	// expected micro-grammar (date, integer, range).
	KindBadContent
	// KindUnknownVocabulary means the value was found but falls outside a
	// closed vocabulary. This signals the vocabulary table needs extending
	// rather than a malformed page.
	KindUnknownVocabulary
)

func (k ParseErrorKind) String() string {
	switch k {
	case KindMissingElement:
		return "missing element"
	case KindBadContent:
		return "bad content"
	case KindUnknownVocabulary:
		return "unknown vocabulary"
	}
	return "unknown"
}

// ParseError reports a single field that did not match the expected page
// structure. Field is empty at the point of failure; the record assembler
// stamps it before the error leaves the package.
type ParseError struct {
	Field  string
	Kind   ParseErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse (%s): %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("parse %q (%s): %s", e.Field, e.Kind, e.Detail)
}

// specify stamps the logical field name onto a failure raised inside a
// generic helper. The first stamp wins.
func (e *ParseError) specify(field string) {
	if e.Field == "" {
		e.Field = field
	}
}

func missingElement(label string) *ParseError {
	return &ParseError{
		Kind:   KindMissingElement,
		Detail: fmt.Sprintf("label %q is missing from the page", label),
	}
}

func badContent(format string, args ...any) *ParseError {
	return &ParseError{
		Kind:   KindBadContent,
		Detail: fmt.Sprintf(format, args...),
	}
}

func unknownVocabulary(format string, args ...any) *ParseError {
	return &ParseError{
		Kind:   KindUnknownVocabulary,
		Detail: fmt.Sprintf(format, args...),
	}
}

// RequestErrorCode classifies retrieval failures derived from HTTP status
// classes. These are always surfaced to the caller and never retried here.
type RequestErrorCode int

const (
	// CodeDoesNotExist: the target resource is gone or never existed (404).
	CodeDoesNotExist RequestErrorCode = iota + 1
	// CodeForbidden: the site refuses to serve the resource (400, 401, 403),
	// e.g. a private anime list.
	CodeForbidden
)

func (c RequestErrorCode) String() string {
	switch c {
	case CodeDoesNotExist:
		return "does not exist"
	case CodeForbidden:
		return "forbidden"
	}
	return "unknown"
}

// RequestError means the target resource could not be retrieved at all.
type RequestError struct {
	Code   RequestErrorCode
	URL    string
	Status int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %s (http %d)", e.URL, e.Code, e.Status)
}
