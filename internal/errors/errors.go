// Package errors classifies failures that end up as a chat reply.
//
// Storage and command code return the sentinels below; handlers attach the
// text the user should see with an Op and read it back with ReplyText.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// Kinds returned by Kind, also used as metric status labels.
const (
	KindUsage    = "usage"
	KindNotFound = "not_found"
	KindExists   = "exists"
	KindInternal = "error"
)

// Kind maps err onto one of the Kind constants, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindUsage
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindExists
	default:
		return KindInternal
	}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err wraps ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// ReplyError pairs an internal cause with the reply shown in chat.
type ReplyError struct {
	Op   Op
	Text string
	Err  error
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ReplyError) Unwrap() error { return e.Err }

// Op names the operation a ReplyError came from, e.g. "admin.add".
type Op string

// NewOp joins module and command into an Op.
func NewOp(module, command string) Op {
	return Op(module + "." + command)
}

// Fail attaches text to err. A nil err stays nil.
func (op Op) Fail(err error, text string) error {
	if err == nil {
		return nil
	}
	return &ReplyError{Op: op, Text: text, Err: err}
}

// Failf is Fail with a formatted reply.
func (op Op) Failf(err error, format string, args ...any) error {
	return op.Fail(err, fmt.Sprintf(format, args...))
}

// Usage reports malformed arguments; text is usually the command's help.
func (op Op) Usage(text string) error {
	return op.Fail(ErrInvalidInput, text)
}

// ReplyText returns the reply attached anywhere in err's chain, falling
// back to err's own message.
func ReplyText(err error) string {
	if err == nil {
		return ""
	}
	var re *ReplyError
	if errors.As(err, &re) {
		return re.Text
	}
	return err.Error()
}
