package remote

import (
	"fmt"
	"net/http"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

// APIError is a non-2xx response from the Remote Content Service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap maps the status code onto the learning error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return learning.ErrAuthRequired
	case e.StatusCode == http.StatusNotFound:
		return learning.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return learning.ErrConflict
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode >= 500:
		return learning.ErrTransient
	default:
		return learning.ErrValidation
	}
}
