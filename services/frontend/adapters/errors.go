package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NetworkError reports that the request never produced a response:
// the host was unreachable, the connection dropped, or a deadline expired.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("request to %s timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by a deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status code error: %d %s", e.StatusCode, e.Status)
}

// ParseError reports a body that is not a valid top stories envelope.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse top stories response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errMissingResults = errors.New(`missing "results" array`)
