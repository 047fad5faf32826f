package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HTTPErrorHandler returns an error handler rendering errors as `{"success":false,"error":{...}}`.
// Unexpected errors are logged with a correlation id returned to the client.
func HTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var mserr *mserror.MSError
		var httperr *echo.HTTPError
		switch {
		case errors.As(err, &mserr):
			if mserr.Kind == mserror.KindInternal {
				internal(log, err, c)
				return
			}

			if mserr.HTTPCode >= http.StatusInternalServerError {
				log.WithError(err).WithField("stage", mserr.Stage()).Warn("request failed")
			}
			_ = c.JSON(mserr.HTTPCode, echo.Map{
				"success": false,
				"error":   mserr.FieldError,
			})
		case errors.As(err, &httperr):
			if httperr.Internal != nil {
				log.WithError(httperr.Internal).Debug("echo error")
			}
			_ = c.JSON(httperr.Code, echo.Map{
				"success": false,
				"error": echo.Map{
					"message": fmt.Sprint(httperr.Message),
				},
			})
		default:
			internal(log, err, c)
		}
	}
}

func internal(log logrus.FieldLogger, err error, c echo.Context) {
	id := uuid.Must(uuid.NewV4()).String()
	log.WithError(err).WithFields(logrus.Fields{
		"id":     id,
		"method": c.Request().Method,
		"uri":    c.Request().RequestURI,
	}).Error("unexpected error")

	_ = c.JSON(http.StatusInternalServerError, echo.Map{
		"success": false,
		"error": echo.Map{
			"tag":     mserror.KindInternal,
			"message": fmt.Sprintf("Unexpected error (id: %s)", id),
		},
	})
}
