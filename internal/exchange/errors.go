package exchange

import "fmt"

// TransportError indicates the exchange could not be reached, or answered with
// a failure before the request could be evaluated. Status is zero for pure
// network errors.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError indicates the exchange evaluated the request and refused it
// (success=false envelope or a 4xx with an error code).
type RejectedError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: rejected (%s): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Message)
}
