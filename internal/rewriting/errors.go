package rewriting

import "fmt"

// RequestError reports a generative call that failed for one candidate.
type RequestError struct {
	Title   string
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rewrite of %q: %s: %v", e.Title, e.Message, e.Cause)
	}
	return fmt.Sprintf("rewrite of %q: %s", e.Title, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}
