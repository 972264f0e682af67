package jigsaw

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrMultipleObjects = errors.New("query returned more than one record")
)

// ConfigurationError reports a view, class or piece that cannot work as
// declared. It is a programming error and is never retried.
type ConfigurationError struct {
	Class  string
	Piece  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Class != "" && e.Piece != "":
		return fmt.Sprintf("jigsaw: %s.%s: %s", e.Class, e.Piece, e.Reason)
	case e.Class != "":
		return fmt.Sprintf("jigsaw: %s: %s", e.Class, e.Reason)
	case e.Piece != "":
		return fmt.Sprintf("jigsaw: piece %s: %s", e.Piece, e.Reason)
	}
	return "jigsaw: " + e.Reason
}

func (e *ConfigurationError) StatusCode() int {
	return http.StatusInternalServerError
}

// Misconfigured builds a ConfigurationError for piece p.
func Misconfigured(p string, format string, args ...interface{}) error {
	return &ConfigurationError{Piece: p, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a request names something that does not
// exist: a missing object or a page outside the paginated range. Handlers
// answer it with a 404.
type NotFoundError struct {
	Reason string
	Err    error
}

func (e *NotFoundError) Error() string {
	return e.Reason
}

func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds a NotFoundError.
func NotFound(format string, args ...interface{}) error {
	return &NotFoundError{Reason: fmt.Sprintf(format, args...)}
}

// StatusCode returns the HTTP status err should be answered with.
func StatusCode(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
