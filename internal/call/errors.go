package call

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSecret      = errors.New("secret must be exactly 10 digits")
	ErrRoomFull           = errors.New("call already has two participants")
	ErrSignalingError     = errors.New("signaling relay error")
	ErrSignalingClosed    = errors.New("signaling connection closed")
	ErrTransportFailed    = errors.New("media transport failed")
	ErrCaptureUnsupported = errors.New("media capture not supported on this platform")
	ErrCallInProgress     = errors.New("a call is already in progress")
)

// CallError wraps a failure with the operation that produced it.
type CallError struct {
	Op      string
	Err     error
	Details string
}

func (e *CallError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *CallError {
	return &CallError{Op: op, Err: err, Details: details}
}
