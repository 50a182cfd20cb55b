package transport

import (
	"errors"
	"fmt"
)

// Error is a failure the platform reported with a numeric code
// (HTTP-like: 400, 403, 429, ...). Errors without a code stay opaque.
type Error struct {
	Code        int
	Description string
	RetryAfter  int
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s (%d)", e.Description, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the platform code carried by err, or false when err is
// unstructured.
func ErrorCode(err error) (int, bool) {
	var te *Error
	if errors.As(err, &te) && te.Code != 0 {
		return te.Code, true
	}
	return 0, false
}
