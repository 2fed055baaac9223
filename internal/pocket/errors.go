package pocket

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRequestFailed matches any non-2xx upstream response via errors.Is.
	ErrRequestFailed = errors.New("pocket request failed")

	// ErrUnsupported is returned by MarkAsRead when the client runs in ModeAll.
	ErrUnsupported = errors.New("operation not supported in this mode")
)

// StatusError describes a non-2xx response from the Pocket API.
type StatusError struct {
	StatusCode int
	StatusText string
	// Detail holds the X-Error header Pocket sets on failures, if any.
	Detail string
}

func newStatusError(resp *http.Response) *StatusError {
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = resp.Status
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		StatusText: text,
		Detail:     resp.Header.Get("X-Error"),
	}
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s)", e.StatusText, e.Detail)
	}
	return e.StatusText
}

// Is makes every StatusError match ErrRequestFailed.
func (e *StatusError) Is(target error) bool {
	return target == ErrRequestFailed
}
