package validation_test

import (
	"testing"

	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/validation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Username string   `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string   `json:"email,omitempty" validate:"required,email"`
	Tags     []string `json:"tags" validate:"max=2"`
	Secret   string   `json:"-"`
}

func TestValidate(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(payload{Username: "george", Email: "george@nowhere.lan"}))

	err := v.Validate(payload{Username: "g!", Email: "nope", Tags: []string{"a", "b", "c"}})
	require.Error(t, err)
	assert.True(t, mserror.Is(err, mserror.KindInvalidInput))

	var mserr *mserror.MSError
	require.True(t, errors.As(err, &mserr))
	assert.Contains(t, mserr.Details(), "username")
	assert.Equal(t, "must be a valid email address", mserr.Details()["email"])
	assert.Equal(t, "must not contain more than 2 items", mserr.Details()["tags"])
}

func TestValidateRequired(t *testing.T) {
	err := validation.New().Validate(payload{})

	var mserr *mserror.MSError
	require.True(t, errors.As(err, &mserr))
	assert.Equal(t, "is required", mserr.Details()["username"])
	assert.Equal(t, "is required", mserr.Details()["email"])
	assert.Equal(t, "username is required.", mserr.Message())
}

type registration struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Password string `json:"password" validate:"required,min=6,max=100,password"`
}

func TestCustomValidations(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(registration{Username: "george_1", Password: "Abitbol42"}))

	err := v.Validate(registration{Username: "george abitbol", Password: "abitbol42"})
	var mserr *mserror.MSError
	require.True(t, errors.As(err, &mserr))
	assert.Equal(t, "can only contain letters, numbers, and underscores", mserr.Details()["username"])
	assert.Equal(t, "must contain at least one lowercase letter, one uppercase letter, and one number", mserr.Details()["password"])
}
