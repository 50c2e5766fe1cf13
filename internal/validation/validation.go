// Package validation checks submitted forms with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	validate   = newValidator()
	phoneChars = regexp.MustCompile(`^[0-9+\-\s()]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	// bcrypt hashes at most 72 bytes; max= counts runes.
	v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	return v
}

// ValidPhone accepts digits, spaces, +, -, and parentheses with at least ten digits.
func ValidPhone(phone string) bool {
	if !phoneChars.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10
}

// Struct validates v and returns one message per invalid field, keyed by the
// field's form name. A nil map means v is valid.
func Struct(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": err.Error()}
	}
	msgs := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := msgs[fe.Field()]; seen {
			continue
		}
		msgs[fe.Field()] = message(fe)
	}
	return msgs
}

// Labels overrides the generated label for form fields whose names read badly.
var Labels = map[string]string{
	"service_id":       "Service",
	"confirm_password": "Password confirmation",
	"new_password":     "New password",
}

func message(fe validator.FieldError) string {
	label, ok := Labels[fe.Field()]
	if !ok {
		label = strings.ReplaceAll(fe.Field(), "_", " ")
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "phone":
		return "Please enter a valid phone number (at least 10 digits)."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	case "eqfield":
		return label + " does not match."
	case "bcryptlen":
		return fmt.Sprintf("%s is too long (at most %d bytes).", label, MaxPasswordBytes)
	case "datetime":
		return label + " must be a date (YYYY-MM-DD)."
	}
	return label + " is invalid."
}

// First returns any one message from msgs, preferring the given field order.
func First(msgs map[string]string, order ...string) string {
	for _, f := range order {
		if m, ok := msgs[f]; ok {
			return m
		}
	}
	for _, m := range msgs {
		return m
	}
	return ""
}
