package protocol

import (
	"fmt"
	"io"
	"net/http"
)

// APIError is an application-level failure reported by the service. Any
// response with a status code >= 300 is an APIError regardless of whether the
// transport layer succeeded; the response payload is kept for diagnostics.
type APIError struct {
	StatusCode int
	Payload    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Payload)
}

// NewAPIError builds an APIError from a normalized response envelope.
func NewAPIError(env ResponseEnvelope) *APIError {
	return &APIError{StatusCode: env.StatusCode, Payload: string(env.Payload)}
}

// APIErrorFromResponse drains the response body into an APIError.
func APIErrorFromResponse(resp *http.Response) *APIError {
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		payload = []byte(fmt.Sprintf("(unreadable body: %s)", err))
	}
	return &APIError{StatusCode: resp.StatusCode, Payload: string(payload)}
}
