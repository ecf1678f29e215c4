package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAadhaarValidation(t *testing.T) {
	valid := []string{"123456789012", "000000000000"}
	invalid := []string{"", "12345678901", "1234567890123", "12345678901a", "1234 5678 90"}

	for _, s := range valid {
		assert.True(t, isAadhaar(s), "expected %q to be a valid aadhaar number", s)
	}
	for _, s := range invalid {
		assert.False(t, isAadhaar(s), "expected %q to be an invalid aadhaar number", s)
	}
}

func TestIndianPhoneValidation(t *testing.T) {
	valid := []string{"9876543210", "+919876543210"}
	invalid := []string{"", "987654321", "98765432100", "+9198765432", "+129876543210", "987654321a"}

	for _, s := range valid {
		assert.True(t, isIndianPhone(s), "expected %q to be a valid phone number", s)
	}
	for _, s := range invalid {
		assert.False(t, isIndianPhone(s), "expected %q to be an invalid phone number", s)
	}
}

type registrationInput struct {
	Aadhaar string `binding:"required,aadhaar"`
	Phone   string `binding:"required,indian_phone"`
}

func TestStructValidation(t *testing.T) {
	assert.NoError(t, Struct(registrationInput{Aadhaar: "123456789012", Phone: "9876543210"}))
	assert.Error(t, Struct(registrationInput{Aadhaar: "123", Phone: "9876543210"}))
	assert.Error(t, Struct(registrationInput{Aadhaar: "123456789012", Phone: "123"}))
	assert.Error(t, Struct(registrationInput{}))
}
