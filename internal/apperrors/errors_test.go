// internal/apperrors/errors_test.go
package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsSetCodes(t *testing.T) {
	assert.Equal(t, CodeAuthentication, Authentication("no token").Code)
	assert.Equal(t, CodePermission, Permission("nope").Code)
	assert.Equal(t, CodeValidation, Validation("bad input").Code)
	assert.Equal(t, CodeNotFound, NotFound("subscription").Code)
	assert.Equal(t, CodeInvalidState, InvalidState("already completed").Code)
	assert.Equal(t, CodeConflict, Conflict("payment cycle").Code)
	assert.Equal(t, CodeStorage, Storage("insert failed", errors.New("boom")).Code)
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "subscription not found", NotFound("subscription").Message)
}

func TestConflictMessageTellsCallerToRetry(t *testing.T) {
	err := Conflict("subscription")
	assert.Contains(t, err.Message, "modified by another user")
	assert.Contains(t, err.Message, "refresh and try again")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("query failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(Conflict("cycle")))
	assert.Equal(t, CodeValidation, CodeOf(fmt.Errorf("wrapped: %w", Validation("bad"))))
	assert.Equal(t, CodeStorage, CodeOf(errors.New("some random error")))
}

func TestMessageOfHidesStorageDetail(t *testing.T) {
	err := Storage("insert failed", errors.New("pq: duplicate key value"))
	assert.Equal(t, "an internal error occurred", MessageOf(err))

	assert.Equal(t, "an internal error occurred", MessageOf(errors.New("raw")))
	assert.Equal(t, "bad input", MessageOf(Validation("bad input")))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR: bad input", Validation("bad input").Error())

	withCause := Storage("query failed", errors.New("timeout"))
	assert.Equal(t, "STORAGE_ERROR: query failed: timeout", withCause.Error())
}
