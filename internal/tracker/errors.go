package tracker

import "errors"

// ValidationError reports a rejected input. The triggering operation is
// aborted with no state change and the message is shown to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	// ErrDeclined is returned when the confirmation gate rejects a
	// destructive operation.
	ErrDeclined = errors.New("confirmation declined")

	// ErrAuth covers an unknown identity or a wrong password. Callers get
	// it wrapped with a user-facing message.
	ErrAuth = errors.New("authentication failed")
)
