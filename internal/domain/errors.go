package domain

import (
	"errors"
	"log/slog"
)

// ErrorKind is the single failure taxonomy shared by every component.
type ErrorKind string

const (
	// KindValidation is a client-side precondition failure; it never reaches the network.
	KindValidation ErrorKind = "VALIDATION"
	// KindTransfer is a transport failure with no interpretable response.
	KindTransfer ErrorKind = "TRANSFER"
	// KindPayloadTooLarge is a server rejection on size grounds.
	KindPayloadTooLarge ErrorKind = "PAYLOAD_TOO_LARGE"
	// KindServer is a server-side failure without a readable detail.
	KindServer ErrorKind = "SERVER"
	// KindService is a failure carrying a human-readable detail from the service.
	KindService ErrorKind = "SERVICE"
)

const (
	MessageFileTooLarge = "File too large. Please select a smaller PDF file."
	MessageServerError  = "Server error. Please try again later."
	MessageUnexpected   = "An unexpected error occurred"
)

// Error is a classified failure. Error() returns only Message, which is what
// the user sees.
type Error struct {
	Kind       ErrorKind
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LogValue groups the classification attributes for structured logs.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("message", e.Message),
	}
	if e.Op != "" {
		attrs = append(attrs, slog.String("op", e.Op))
	}
	if e.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", e.StatusCode))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("cause", e.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// NewValidationError builds a KindValidation error for op.
func NewValidationError(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Classify maps any error onto the taxonomy. It is total: errors that are
// not already classified become KindTransfer carrying their raw message.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) && classified != nil {
		return classified
	}
	msg := err.Error()
	if msg == "" {
		msg = MessageUnexpected
	}
	return &Error{Kind: KindTransfer, Message: msg, Err: err}
}

// Message returns the user-visible text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).Message
}

// KindOf returns the taxonomy kind of err, or "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return Classify(err).Kind
}
