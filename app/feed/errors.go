package feed

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindNetwork      ErrorKind = "network_error"
	ErrorKindTimeout      ErrorKind = "timeout"
	ErrorKindNotFound     ErrorKind = "not_found"
	ErrorKindUnauthorized ErrorKind = "unauthorized"
	ErrorKindParse        ErrorKind = "parse_error"
	ErrorKindInvalidFeed  ErrorKind = "invalid_feed"
	ErrorKindEncoding     ErrorKind = "encoding_error"
)

// Error is the typed failure returned by the parser pipeline and the fetch gateway.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewNetworkError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindNetwork, Message: message, Cause: cause}
}

func NewTimeoutError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindTimeout, Message: message, Cause: cause}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: ErrorKindNotFound, Message: message}
}

func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: ErrorKindUnauthorized, Message: message}
}

func NewParseError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindParse, Message: message, Cause: cause}
}

func NewInvalidFeedError(message string) *Error {
	return &Error{Kind: ErrorKindInvalidFeed, Message: message}
}

func NewEncodingError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindEncoding, Message: message, Cause: cause}
}

// KindOf reports the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
