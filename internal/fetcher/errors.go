package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

const (
	ClassTransport  = "transport"
	ClassTimeout    = "timeout"
	ClassStatus     = "status"
	ClassPayload    = "payload"
	ClassTooLarge   = "too_large"
	ClassCancelled  = "cancelled"
	ClassUnexpected = "unexpected"
)

// ErrBodyTooLarge marks a page whose body exceeds api.maxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// TransportError is a connection level failure: the request never produced
// a response.
type TransportError struct {
	URL  string
	Page int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s (page %d): %v", e.URL, e.Page, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ResponseError is a response that arrived but cannot be used, either because
// of its status code or because the body is not a valid page.
type ResponseError struct {
	URL        string
	Page       int
	StatusCode int
	Err        error
}

func (e *ResponseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("request %s (page %d): http status %d", e.URL, e.Page, e.StatusCode)
	}
	if errors.Is(e.Err, ErrBodyTooLarge) {
		return fmt.Sprintf("request %s (page %d): %v", e.URL, e.Page, e.Err)
	}
	return fmt.Sprintf("request %s (page %d): malformed body: %v", e.URL, e.Page, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// Malformed reports whether the response had a usable status but an invalid body.
func (e *ResponseError) Malformed() bool { return e.Err != nil }

// Classify maps a page error onto the metric/log class it belongs to.
func Classify(err error) string {
	var te *TransportError
	var re *ResponseError
	switch {
	case errors.Is(err, context.Canceled):
		return ClassCancelled
	case errors.As(err, &te):
		if te.Timeout() || errors.Is(err, context.DeadlineExceeded) {
			return ClassTimeout
		}
		return ClassTransport
	case errors.As(err, &re):
		if errors.Is(re.Err, ErrBodyTooLarge) {
			return ClassTooLarge
		}
		if re.Malformed() {
			return ClassPayload
		}
		return ClassStatus
	default:
		return ClassUnexpected
	}
}
