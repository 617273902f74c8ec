package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoSession means neither an access nor a refresh token is stored.
	ErrNoSession = errors.New("no active session, please log in")
	// ErrRefreshFailed wraps every failure of the token exchange.
	ErrRefreshFailed = errors.New("session refresh failed")
	// ErrNoUserID means the session holds tokens but no user ID.
	ErrNoUserID = errors.New("session has no user id, please log in again")
	// ErrEmptyResponse means a successful envelope carried no data where an object was expected.
	ErrEmptyResponse = errors.New("backend returned an empty response")
)

// APIError is a non-2xx answer from the backend, or a 2xx answer whose
// envelope reports success=false.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

func newAPIError(r *request, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method:     r.method,
		Path:       r.path,
		StatusCode: status,
		Body:       string(body[:min(len(body), 512)]),
	}
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Message = parsed.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(apiErr.Body)
	}
	return apiErr
}
