package changes

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; filesystem failures are wrapped
// unchanged and still match fs.ErrNotExist and friends.
var (
	// ErrInvalidInput is a malformed argument, such as a non kebab-case name.
	ErrInvalidInput = errors.New("ValidationError")
	// ErrAlreadyExists is a change or archive directory that is already there.
	ErrAlreadyExists = errors.New("AlreadyExists")
	// ErrNotFound is a missing change, spec, or project directory.
	ErrNotFound = errors.New("NotFound")
	// ErrValidationFailed means the validator reported errors.
	ErrValidationFailed = errors.New("ValidationFailed")
)

// Error is a lifecycle precondition failure.
type Error struct {
	Kind error
	// Op is the lifecycle operation, for example "archive".
	Op      string
	Message string
	// Issues carries the validator's error messages for ErrValidationFailed.
	Issues []string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrNotFound) and the other kinds work.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind name of err, or "IOError" for anything
// that is not a lifecycle error.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Error()
	}
	return "IOError"
}
