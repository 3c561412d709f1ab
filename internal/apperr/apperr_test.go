package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:  http.StatusBadRequest,
		CodeAlreadyExists: http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeRateLimited:   http.StatusTooManyRequests,
		CodeInternal:      http.StatusInternalServerError,
		Code("SOMETHING"): http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}

func TestCodeSurvivesWrapping(t *testing.T) {
	base := NotFound("role")
	wrapped := fmt.Errorf("assign: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, "role not found", Message(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, CodeInternal, GetCode(plain))
	assert.Empty(t, Message(plain))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := &Error{Code: CodeInternal, Message: "query failed", Err: cause}
	assert.EqualError(t, err, "[INTERNAL_ERROR] query failed: db down")
	assert.ErrorIs(t, err, cause)
}
