package authority

import "fmt"

// NetworkError indicates the request never produced a response: connection
// refused, DNS failure, timeout. Always presumed transient; the offline
// queue never charges its retry budget for these.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("authority %s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RejectionError indicates the authority received the request and rejected
// it. Counts toward the offline queue's dead-letter budget.
type RejectionError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("authority %s: rejected (status %d): %s", e.Op, e.StatusCode, e.Message)
}
