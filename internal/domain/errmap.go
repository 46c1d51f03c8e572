package domain

import "strings"

// ErrorKind classifies known backend quote failures so display copy stays a
// data table rather than scattered string checks.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindNoRoute
	ErrorKindInsufficientOut
)

const (
	noRouteMsg         = "Sorry, we're having a hard time finding a route that makes sense for you. Please try again in a bit."
	insufficientOutMsg = "Sorry, the market is volatile right now. Please increase slippage in your settings."
)

// errorPatterns maps case-insensitive substrings of backend errors to their
// kind. Order matters only for documentation; matches are disjoint.
var errorPatterns = []struct {
	substr string
	kind   ErrorKind
}{
	{"404", ErrorKindNoRoute},
	{"500", ErrorKindNoRoute},
	{"504", ErrorKindNoRoute},
	{"failed to construct swap", ErrorKindNoRoute},
	{"insufficient_out", ErrorKindInsufficientOut},
}

var errorCopy = map[ErrorKind]string{
	ErrorKindNoRoute:         noRouteMsg,
	ErrorKindInsufficientOut: insufficientOutMsg,
}

// ClassifyError maps a raw backend error string to a known kind.
func ClassifyError(raw string) ErrorKind {
	lower := strings.ToLower(raw)
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.substr) {
			return p.kind
		}
	}
	return ErrorKindUnknown
}

// DisplayError returns the user-facing copy for a raw backend error.
// Unknown kinds fall through to the raw message verbatim.
func DisplayError(raw string) string {
	if raw == "" {
		return ""
	}
	if msg, ok := errorCopy[ClassifyError(raw)]; ok {
		return msg
	}
	return raw
}
