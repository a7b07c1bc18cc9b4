package client

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the records API.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("records API %s: %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("records API %s: %d %s: %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// NotFound reports whether the API answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
