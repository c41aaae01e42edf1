package adapter

import (
	"errors"
	"fmt"
)

// ErrServerUnavailable is returned when the dispatcher never accepted a
// connection during WaitForReady.
var ErrServerUnavailable = errors.New("event dispatcher is not available")

// BindError reports that the dispatcher could not listen on its address.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind event dispatcher on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// DecodeError reports bytes that do not form exactly one valid event.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "failed to decode event: " + e.Reason
	}

	return fmt.Sprintf("failed to decode event: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SendError reports a failed one-shot event delivery.
type SendError struct {
	Addr string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send event to %s: %v", e.Addr, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
