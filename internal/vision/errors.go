package vision

import "fmt"

// BackendError indicates the vision backend call itself failed: transport
// error, timeout, rate limit, or a non-2xx response. Local to one frame.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("vision backend error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("vision backend error: %s", e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ParseError indicates the backend answered but its response could not be
// validated against the media item schema. Local to one frame.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vision response parse error: %s", e.Reason)
}
