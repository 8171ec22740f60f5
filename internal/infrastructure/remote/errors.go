package remote

import (
	"fmt"
	"net/http"

	"github.com/erp/channelsync/internal/domain/integration"
)

// maxErrorBody bounds the body kept on a RemoteAPIError.
const maxErrorBody = 2048

// RemoteAPIError is returned for any non-2xx response. It keeps the status
// and raw body for diagnostics.
type RemoteAPIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote api %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap classifies the error so callers can use errors.Is with the
// integration sentinels.
func (e *RemoteAPIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return integration.ErrRemoteUnauthorized
	case e.StatusCode >= 500:
		return integration.ErrRemoteUnavailable
	default:
		return integration.ErrRemoteRejected
	}
}

// IsRetryable reports whether the request may succeed when repeated.
// Only server errors are retried; 4xx responses are final.
func (e *RemoteAPIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func newRemoteAPIError(method, url string, status int, body []byte) *RemoteAPIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &RemoteAPIError{Method: method, URL: url, StatusCode: status, Body: string(body)}
}
