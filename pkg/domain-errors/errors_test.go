package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	t.Run("classified error reports its code", func(t *testing.T) {
		err := New(CodeValidation, "answer_id is required")
		assert.Equal(t, CodeValidation, CodeOf(err))
	})

	t.Run("wrapped classified error is found through the chain", func(t *testing.T) {
		inner := New(CodeNotFound, "config missing")
		outer := fmt.Errorf("resolving: %w", inner)
		assert.Equal(t, CodeNotFound, CodeOf(outer))
	})

	t.Run("unclassified error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestHasCode(t *testing.T) {
	err := Wrap(errors.New("no rows"), CodeNotFound, "attempt not found")
	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "overlay read failed")
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "overlay read failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeInvalidInput: http.StatusBadRequest,
		CodeBadRequest:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeUnavailable:  http.StatusServiceUnavailable,
		CodeTimeout:      http.StatusGatewayTimeout,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), "code %s", code)
	}
}
