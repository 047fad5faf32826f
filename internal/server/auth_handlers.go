package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/server/serializer"
	"github.com/mdouchement/memeswipe/internal/service"
)

// auth contains all authentication handlers.
type auth struct {
	users *service.Users
}

///// Register
////
//

// Register handler is used to register the user.
func (h *auth) Register(c echo.Context) error {
	// Filter params
	var params service.RegisterParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	session, err := h.users.Register(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, serializer.Global(echo.Map{
		"user":  serializer.User(session.User),
		"token": session.Token,
	}))
}

///// Login
////
//

// Login handler is used to login the user.
func (h *auth) Login(c echo.Context) error {
	// Filter params
	var params service.LoginParams
	if err := c.Bind(&params); err != nil {
		return mserror.Wrap(err, mserror.KindInvalidInput, "Could not get credentials.")
	}

	session, err := h.users.Login(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"user":  serializer.User(session.User),
		"token": session.Token,
	}))
}

///// Me
////
//

// Me handler renders the current user.
func (h *auth) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"user": serializer.User(currentUser(c)),
	}))
}
