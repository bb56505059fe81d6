package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `validate:"required"`
	Email string `validate:"email"`
	Count int    `validate:"gte=1"`
}

func TestFromValidationError(t *testing.T) {
	err := validator.New().Struct(&sample{Email: "nope"})
	require.Error(t, err)

	structured := FromValidationError(err)
	require.NotNil(t, structured)
	assert.Equal(t, http.StatusBadRequest, structured.Code())
	assert.Equal(t, []string{"This field is required"}, structured.Errors["name"])
	assert.Equal(t, []string{"Value must be a valid email address"}, structured.Errors["email"])
	assert.Equal(t, []string{"Value is too small, min: 1"}, structured.Errors["count"])

	assert.Nil(t, FromValidationError(errors.New("plain")))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, "Parameter 'id' has invalid type, expected: int64", NewInvalidParamTypeError("id", "int64").Message)
	assert.Equal(t, http.StatusForbidden, NewPermissionError(4).Code())
	assert.Equal(t, "Missing permission: 4", NewPermissionError(4).Message)

	s := NewStructured(http.StatusBadRequest)
	s.Add("is_active", "This field is required")
	assert.Equal(t, map[string][]string{"is_active": {"This field is required"}}, s.Errors)
}
