// Package errs provides structured error types for the cree server.
package errs

import (
	"fmt"
	"time"
)

// Kind classifies an error into the bands documented in the specification.
type Kind string

const (
	KindConnection Kind = "connection"
	KindIO         Kind = "io"
	KindParse      Kind = "parse"
	KindResponse   Kind = "response"
	KindCGI        Kind = "cgi"
	KindTLS        Kind = "tls"
)

// Numeric codes, grouped by band. These are stable and may be logged or
// surfaced to callers; they are never sent on the wire.
const (
	CodePeerAddr        = 4001
	CodeMessageCap      = 4002
	CodeIdleTimeout     = 4003
	CodeShutdownFailure = 1004

	CodeReadFailure  = 1002
	CodeWriteFailure = 1003
	CodeFileOpen     = 1005
	CodeFlush        = 1006

	CodeMalformedHTTP   = 2001
	CodeUnknownMethod   = 2002
	CodeInvalidStatus   = 2003
	CodeRequestOverflow = 2004

	CodeDoubleSend = 2000

	CodeCGISetup = 3000

	CodeTLSMalformed    = 5001
	CodeTLSUnknownMsg   = 5002
	CodeTLSKeysMissing  = 5003
	CodeTLSFieldTooLong = 5004
	CodeTLSUnsupported  = 5005
	CodeTLSAuthFailure  = 5006
)

// Error is a structured error carrying a kind, a stable numeric code, the
// operation that failed, a human-readable message, and an optional cause.
type Error struct {
	Kind      Kind
	Code      int
	Op        string
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s %d] %s", e.Kind, e.Code, e.Op)
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func new(kind Kind, code int, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Op: op, Message: msg, Cause: cause, Timestamp: time.Now()}
}

func NewPeerAddr(cause error) *Error {
	return new(KindConnection, CodePeerAddr, "peer-addr", "failed to resolve peer address", cause)
}

func NewMessageCap() *Error {
	return new(KindConnection, CodeMessageCap, "messages", "per-connection message cap exceeded", nil)
}

func NewIdleTimeout() *Error {
	return new(KindConnection, CodeIdleTimeout, "messages", "connection idle timeout", nil)
}

func NewShutdownFailure(cause error) *Error {
	return new(KindConnection, CodeShutdownFailure, "shutdown", "connection shutdown failed", cause)
}

func NewReadFailure(cause error) *Error {
	return new(KindIO, CodeReadFailure, "read", "read failure", cause)
}

func NewWriteFailure(cause error) *Error {
	return new(KindIO, CodeWriteFailure, "write", "write failure", cause)
}

func NewFileOpen(path string, cause error) *Error {
	return new(KindIO, CodeFileOpen, "open", "failed to open "+path, cause)
}

func NewFlush(cause error) *Error {
	return new(KindIO, CodeFlush, "flush", "flush failure", cause)
}

func NewMalformedHTTP(msg string) *Error {
	return new(KindParse, CodeMalformedHTTP, "parse-http", msg, nil)
}

func NewInvalidStatus(code int) *Error {
	return new(KindParse, CodeInvalidStatus, "status", fmt.Sprintf("invalid status code %d", code), nil)
}

func NewRequestOverflow() *Error {
	return new(KindParse, CodeRequestOverflow, "count", "request count overflow", nil)
}

func NewDoubleSend() *Error {
	return new(KindResponse, CodeDoubleSend, "send", "response already sent", nil)
}

func NewCGISetup(msg string, cause error) *Error {
	return new(KindCGI, CodeCGISetup, "cgi", msg, cause)
}

func NewTLSMalformed(msg string) *Error {
	return new(KindTLS, CodeTLSMalformed, "tls-decode", msg, nil)
}

func NewTLSUnknownMsg(typ byte) *Error {
	return new(KindTLS, CodeTLSUnknownMsg, "tls-decode", fmt.Sprintf("unknown handshake type %#x", typ), nil)
}

func NewTLSKeysMissing() *Error {
	return new(KindTLS, CodeTLSKeysMissing, "tls-keys", "traffic keys not derived", nil)
}

func NewTLSFieldTooLong(field string) *Error {
	return new(KindTLS, CodeTLSFieldTooLong, "tls-decode", field+" exceeds maximum length", nil)
}

func NewTLSUnsupported(msg string) *Error {
	return new(KindTLS, CodeTLSUnsupported, "tls-version", msg, nil)
}

func NewTLSAuthFailure(op string) *Error {
	return new(KindTLS, CodeTLSAuthFailure, op, "authentication failure", nil)
}
