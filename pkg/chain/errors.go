package chain

import "fmt"

// VerificationError means that an inbound request is not authentic, e.g. its
// signature doesn't match, or it's outside the replay-protection window.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// DeserializationError means that an authentic
// request's payload can't be parsed as expected.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("malformed payload: %v", e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// HandlerError wraps any error returned by an event handler,
// as well as panics which are recovered at the chain boundary.
type HandlerError struct {
	Category Category
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler error: %v", e.Category, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
