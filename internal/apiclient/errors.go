package apiclient

import (
	"errors"
	"fmt"
	"net/url"
)

// InvalidUserMessage is the error string the remote API returns when the
// x-user-id header references an identity that no longer resolves.
const InvalidUserMessage = "Invalid user"

// UnknownErrorMessage stands in for a failure response that carried no message.
const UnknownErrorMessage = "Unknown error"

// ErrInvalidUser matches (via errors.Is) any *Error carrying InvalidUserMessage.
var ErrInvalidUser = errors.New("apiclient: invalid user")

// Error is a non-success response from the remote API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus reports the upstream status code.
func (e *Error) HTTPStatus() int {
	return e.Status
}

// Is lets errors.Is(err, ErrInvalidUser) detect forced-logout responses.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidUser && e.Message == InvalidUserMessage
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns a message suitable for inline display.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Sprintf("request failed: %v", urlErr.Err)
	}
	return err.Error()
}
