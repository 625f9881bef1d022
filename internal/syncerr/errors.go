// Package syncerr defines the error taxonomy shared by the backup engine.
//
// Every error in this package is non-fatal to a session: callers log it,
// skip the offending record or key, and carry on. A DataSource or StreamIO
// error aborts only the export of the record type that produced it.
package syncerr

import (
	"errors"
	"fmt"
)

// Code categorizes a sync error.
type Code string

const (
	// CodeIntegrity indicates an envelope checksum mismatch.
	CodeIntegrity Code = "INTEGRITY"

	// CodeDecode indicates malformed serialized bytes.
	CodeDecode Code = "DECODE"

	// CodeKeyParsing indicates a malformed or unverifiable stream key.
	CodeKeyParsing Code = "KEY_PARSING"

	// CodeResourceEncoding indicates a bitmap could not be compressed.
	CodeResourceEncoding Code = "RESOURCE_ENCODING"

	// CodeDataSource indicates the live row enumeration failed.
	CodeDataSource Code = "DATA_SOURCE"

	// CodeStreamIO indicates a read or write against the backup channel failed.
	CodeStreamIO Code = "STREAM_IO"
)

// Error is the single error type used across the engine.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Key is the encoded stream key or display name involved, if any.
	Key string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithKey returns a copy of e annotated with key.
func (e *Error) WithKey(key string) *Error {
	c := *e
	c.Key = key
	return &c
}

// Integrity creates an envelope checksum mismatch error.
func Integrity(msg string) *Error {
	return &Error{Code: CodeIntegrity, Message: msg}
}

// Decode creates a malformed-bytes error.
func Decode(msg string, err error) *Error {
	return &Error{Code: CodeDecode, Message: msg, Err: err}
}

// KeyParsing creates a stream key error for the given encoded key.
func KeyParsing(key, msg string, err error) *Error {
	return &Error{Code: CodeKeyParsing, Message: msg, Key: key, Err: err}
}

// ResourceEncoding creates a bitmap compression error.
func ResourceEncoding(msg string, err error) *Error {
	return &Error{Code: CodeResourceEncoding, Message: msg, Err: err}
}

// DataSource creates a row enumeration error.
func DataSource(msg string, err error) *Error {
	return &Error{Code: CodeDataSource, Message: msg, Err: err}
}

// StreamIO creates a backup channel I/O error.
func StreamIO(key, msg string, err error) *Error {
	return &Error{Code: CodeStreamIO, Message: msg, Key: key, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Is reports whether err's chain contains an *Error with the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsIntegrity reports whether err is an envelope checksum mismatch.
func IsIntegrity(err error) bool { return Is(err, CodeIntegrity) }

// IsDecode reports whether err is a malformed-bytes error.
func IsDecode(err error) bool { return Is(err, CodeDecode) }

// IsKeyParsing reports whether err is a stream key error.
func IsKeyParsing(err error) bool { return Is(err, CodeKeyParsing) }

// IsResourceEncoding reports whether err is a bitmap compression error.
func IsResourceEncoding(err error) bool { return Is(err, CodeResourceEncoding) }

// IsDataSource reports whether err is a row enumeration error.
func IsDataSource(err error) bool { return Is(err, CodeDataSource) }

// IsStreamIO reports whether err is a backup channel I/O error.
func IsStreamIO(err error) bool { return Is(err, CodeStreamIO) }
