package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signingKey = []byte("jwt-development")

func TestRegisterAndLogin(t *testing.T) {
	e := setup(t)
	users := service.NewUsers(e.db, signingKey, time.Hour, false)

	session, err := users.Register(service.RegisterParams{
		Username: "george",
		Email:    "George.Abitbol@nowhere.lan",
		Password: "Abitbol42",
	})
	require.NoError(t, err)
	assert.Equal(t, "george.abitbol@nowhere.lan", session.User.Email)
	assert.Equal(t, "george", session.User.Name)
	assert.NotEqual(t, "Abitbol42", session.User.Password)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(session.Token, claims, func(*jwt.Token) (any, error) {
		return signingKey, nil
	})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims[service.ClaimUserID])
	assert.Equal(t, service.Issuer, claims["iss"])

	login, err := users.Login(service.LoginParams{Email: "george.abitbol@nowhere.lan", Password: "Abitbol42"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = users.Login(service.LoginParams{Email: "george.abitbol@nowhere.lan", Password: "wrong"})
	assert.True(t, mserror.Is(err, mserror.KindUnauthorized))

	_, err = users.Login(service.LoginParams{Email: "nobody@nowhere.lan", Password: "Abitbol42"})
	assert.True(t, mserror.Is(err, mserror.KindUnauthorized))
}

func TestRegisterRejects(t *testing.T) {
	e := setup(t)
	users := service.NewUsers(e.db, signingKey, 0, false)

	_, err := users.Register(service.RegisterParams{Username: "george", Email: "george@nowhere.lan", Password: "Abitbol42"})
	require.NoError(t, err)

	for _, params := range []service.RegisterParams{
		{Username: "george2", Email: "george@nowhere.lan", Password: "Abitbol42"},
		{Username: "george", Email: "other@nowhere.lan", Password: "Abitbol42"},
		{Username: "g", Email: "g@nowhere.lan", Password: "Abitbol42"},
		{Username: "george3", Email: "george3@nowhere.lan", Password: "weak"},
		{Username: "george4", Email: "not-an-email", Password: "Abitbol42"},
	} {
		_, err = users.Register(params)
		assert.True(t, mserror.Is(err, mserror.KindInvalidInput), params.Username)
	}

	closed := service.NewUsers(e.db, signingKey, 0, true)
	_, err = closed.Register(service.RegisterParams{Username: "george5", Email: "george5@nowhere.lan", Password: "Abitbol42"})
	assert.True(t, mserror.Is(err, mserror.KindForbidden))
}
