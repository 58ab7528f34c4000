// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type utrPayload struct {
	UTR string `validate:"required,utr"`
}

func TestUTRValidation(t *testing.T) {
	valid := []string{
		"UTR123456789",           // 12 chars, minimum
		"N123456789012345678901", // 22 chars, maximum
		"AXISN12345678901",
	}
	for _, utr := range valid {
		assert.NoError(t, ValidateStruct(&utrPayload{UTR: utr}), "expected %q to be valid", utr)
	}

	invalid := []string{
		"SHORT123",                // under 12
		"N1234567890123456789012", // 23 chars, over 22
		"UTR-12345678",            // punctuation
		"UTR 123456789",           // whitespace
		"",                        // required
	}
	for _, utr := range invalid {
		assert.Error(t, ValidateStruct(&utrPayload{UTR: utr}), "expected %q to be invalid", utr)
	}
}

type commentPayload struct {
	Comments string `validate:"required,min=10"`
}

func TestRejectionCommentMinimumLength(t *testing.T) {
	assert.Error(t, ValidateStruct(&commentPayload{Comments: "too short"}))
	assert.NoError(t, ValidateStruct(&commentPayload{Comments: "vendor pricing no longer approved"}))
}

type passwordPayload struct {
	Password string `validate:"required,strong_password"`
}

func TestStrongPasswordValidation(t *testing.T) {
	assert.NoError(t, ValidateStruct(&passwordPayload{Password: "GoodPass1!"}))

	weak := []string{
		"alllower1!", // no uppercase
		"ALLUPPER1!", // no lowercase
		"NoNumbers!", // no digit
		"NoSpecial1", // no special character
		"Ab1!",       // too short
	}
	for _, password := range weak {
		assert.Error(t, ValidateStruct(&passwordPayload{Password: password}), "expected %q to be rejected", password)
	}
}

type datePayload struct {
	Start string `validate:"required"`
	End   string `validate:"required,gtfield=Start"`
}

func TestGetValidationErrors(t *testing.T) {
	err := ValidateStruct(&commentPayload{Comments: "short"})
	require.Error(t, err)

	errs := GetValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "comments", errs[0].Field)
	assert.Equal(t, "min", errs[0].Tag)
	assert.Equal(t, "Comments must be at least 10 characters", errs[0].Message)
}

func TestGetValidationErrorsGtField(t *testing.T) {
	err := ValidateStruct(&datePayload{Start: "2026-04-01", End: "2026-01-01"})
	require.Error(t, err)

	errs := GetValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "gtfield", errs[0].Tag)
	assert.Equal(t, "End must be after Start", errs[0].Message)
}
