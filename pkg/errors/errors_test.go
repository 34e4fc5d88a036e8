package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", New(ErrInternal, http.StatusTeapot, "x"), http.StatusTeapot},
		{"invalid param", InvalidParam("top_n", "must be >= 0"), http.StatusBadRequest},
		{"wrapped sentinel", fmt.Errorf("query: %w", ErrInvalidQueryParameter), http.StatusBadRequest},
		{"not ready", ErrIndexNotReady, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := InvalidParam("alpha", "%q is not a number", "abc")
	assert.True(t, errors.Is(err, ErrInvalidQueryParameter))
	assert.Equal(t, `invalid query parameter: alpha: "abc" is not a number`, err.Error())
}
