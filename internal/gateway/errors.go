package gateway

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrResponseTooLarge is returned when an accepted answer is bigger than the
// client is willing to decode.
var ErrResponseTooLarge = errors.New("response exceeds 1 MiB")

// StatusError is returned when the gateway answers with a status code the
// endpoint does not accept.
type StatusError struct {
	Code int
	Body []byte
}

func NewStatusError(code int, body []byte) *StatusError {
	return &StatusError{Code: code, Body: body}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// BodyPrefix returns at most n bytes of the response body.
func (e *StatusError) BodyPrefix(n int) string {
	if len(e.Body) <= n {
		return string(e.Body)
	}
	return string(e.Body[:n])
}

func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// TimeoutError is returned when a request exceeds its own deadline. It is not
// returned when the caller's context is canceled.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// DecodeError is returned when the response body is not the JSON the endpoint
// is expected to answer with.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: invalid JSON response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
