package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewError("bad input").Mark(ErrValidation), http.StatusBadRequest},
		{"unauthorized", NewError("bad code").Mark(ErrUnauthorized), http.StatusUnauthorized},
		{"not found", NewError("missing").Mark(ErrNotFound), http.StatusNotFound},
		{"too large", NewError("big").Mark(ErrPayloadTooLarge), http.StatusRequestEntityTooLarge},
		{"rate limited", NewError("slow down").Mark(ErrRateLimited), http.StatusTooManyRequests},
		{"configuration", NewError("no owner").Mark(ErrConfiguration), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NewError("missing").Mark(ErrNotFound)), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromErr(tt.err))
		})
	}
}

func TestCodeFromErr(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, CodeFromErr(NewError("x").Mark(ErrNotFound)))
	assert.Equal(t, ErrCodeSystemError, CodeFromErr(fmt.Errorf("x")))
}

func TestPredicates(t *testing.T) {
	err := WithError(fmt.Errorf("driver")).WithHint("Invalid date").Mark(ErrValidation)
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
	assert.True(t, IsUnauthorized(NewError("x").Mark(ErrUnauthorized)))
	assert.True(t, IsConfiguration(NewError("x").Mark(ErrConfiguration)))
}
