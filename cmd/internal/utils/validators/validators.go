package validators

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var hasSpaces = regexp.MustCompile(`\s+`)

// Register installs every custom validation tag used by request contracts.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
}

// New returns a validator with all custom tags already registered.
func New() *validator.Validate {
	validate := validator.New()
	Register(validate)
	return validate
}

// NoWhiteSpaces returns false if the string contains any whitespace (rejecting the user input).
func NoWhiteSpaces(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	str := field.String()
	return !hasSpaces.MatchString(str)
}
