package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCorpusRead            = errors.New("corpus read error")
	ErrStopWordFileMissing   = errors.New("stop-word file missing")
	ErrIndexFormat           = errors.New("index format error")
	ErrInvalidQueryParameter = errors.New("invalid query parameter")
	ErrIndexNotReady         = errors.New("index not ready")
	ErrInternal              = errors.New("internal error")
	ErrTimeout               = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// InvalidParam reports a caller-supplied query parameter that could not be
// used. It never affects shared index state.
func InvalidParam(name string, format string, args ...any) *AppError {
	return Newf(ErrInvalidQueryParameter, http.StatusBadRequest, "%s: %s", name, fmt.Sprintf(format, args...))
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidQueryParameter):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexNotReady), errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
