package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures by the pipeline stage that produced them
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeListing    ErrorType = "listing"
	ErrorTypeMediaFetch ErrorType = "media_fetch"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeLedger     ErrorType = "ledger"
	ErrorTypeParsing    ErrorType = "parsing"
)

// Error is a typed pipeline error. Code carries the HTTP status when the
// failure came from a remote endpoint, 0 otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, code int, message string, err error) *Error {
	return &Error{Type: t, Message: message, Code: code, Err: err}
}

// NewAuthError reports a rejected or failed token request
func NewAuthError(code int, message string, err error) *Error {
	return New(ErrorTypeAuth, code, message, err)
}

// NewListingError reports a failed search or listing request
func NewListingError(code int, message string, err error) *Error {
	return New(ErrorTypeListing, code, message, err)
}

// NewMediaFetchError reports a failed media download
func NewMediaFetchError(code int, message string, err error) *Error {
	return New(ErrorTypeMediaFetch, code, message, err)
}

// NewConfigError reports an invalid configuration value
func NewConfigError(message string) *Error {
	return New(ErrorTypeConfig, 0, message, nil)
}

// NewStorageError reports an artifact store failure
func NewStorageError(message string, err error) *Error {
	return New(ErrorTypeStorage, 0, message, err)
}

// NewLedgerError reports a ledger write or read failure
func NewLedgerError(message string, err error) *Error {
	return New(ErrorTypeLedger, 0, message, err)
}

// Is reports whether any error in err's chain is an *Error of type t
func Is(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	if e.Type == t {
		return true
	}
	// an *Error may wrap another typed error further down
	return e.Err != nil && Is(e.Err, t)
}

// TypeOf returns the type of the first *Error in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}
