package validate

import (
	"github.com/go-playground/validator/v10"
)

var global = New()

// New returns a validator with the platform's custom rules registered. It reads
// the same `binding` tags gin's request binding does, so handler input structs
// validate identically in and out of the HTTP layer.
func New() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterCustomValidators(v)
	return v
}

// RegisterCustomValidators registers the platform's custom rules on the given
// validator, including gin's binding validator
func RegisterCustomValidators(v *validator.Validate) {
	v.RegisterValidation("aadhaar", AadhaarValidator)
	v.RegisterValidation("indian_phone", IndianPhoneValidator)
}

// Struct validates the given struct with the shared validator
func Struct(s interface{}) error {
	return global.Struct(s)
}

// AadhaarValidator validates that a field is an aadhaar number: exactly 12 digits
var AadhaarValidator validator.Func = func(fl validator.FieldLevel) bool {
	return isAadhaar(fl.Field().String())
}

// IndianPhoneValidator validates that a field is an Indian phone number: +91
// followed by 10 digits, or a bare 10 digits
var IndianPhoneValidator validator.Func = func(fl validator.FieldLevel) bool {
	return isIndianPhone(fl.Field().String())
}

func isAadhaar(s string) bool {
	return len(s) == 12 && allDigits(s)
}

func isIndianPhone(s string) bool {
	if len(s) == 13 && s[:3] == "+91" {
		return allDigits(s[3:])
	}
	return len(s) == 10 && allDigits(s)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
