package client

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrNotLoggedIn is returned, wrapped in an *AuthError, when a call needs a
// bearer token and none is stored. No request is made in that case.
var ErrNotLoggedIn = errors.New("please log in")

// NetworkError is a transport failure or a non 2xx reply.
type NetworkError struct {
	Method string
	Path   string
	// Status is 0 when no reply was received.
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	msg := e.Method + " " + e.Path
	if e.Status != 0 {
		msg += fmt.Sprintf(": %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is a missing or rejected token on an authenticated call.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("authentication failed (%d): please log in", e.Status)
	}
	return e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuth reports whether err asks the user to log in again.
func IsAuth(err error) bool {
	var aerr *AuthError
	return errors.As(err, &aerr)
}

// IsNetwork reports whether err is a transport failure or a rejected call.
func IsNetwork(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr)
}
