package middlewares

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/service"
	"github.com/pkg/errors"
)

const (
	// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
	CurrentUserContextKey = "current_user"
	// TokenContextKey is the key to retrieve the JWT from echo.Context.
	TokenContextKey = "token"
)

// JWT returns a middleware checking the bearer token of the request.
func JWT(signingKey []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: signingKey,
		ContextKey: TokenContextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return mserror.Wrap(err, mserror.KindUnauthorized, "Invalid login credentials.")
		},
	})
}

// CurrentUser loads the user of the JWT and stores it into echo.Context.
// It must run after the JWT middleware.
func CurrentUser(db database.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(TokenContextKey).(*jwt.Token)
			if !ok {
				panic("token implementation has changed")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				panic("token implementation has wrong type of claims")
			}

			id, _ := claims[service.ClaimUserID].(string)
			if id == "" {
				return mserror.Unauthorized("Invalid login credentials.")
			}

			// Get current_user.
			user, err := db.FindUser(id)
			if err != nil {
				if db.IsNotFound(err) {
					return mserror.Unauthorized("No such user for given token.")
				}
				return errors.Wrap(err, "could not get access to database")
			}

			// Check if password has changed since token was generated.
			iat, err := claims.GetIssuedAt()
			if err != nil || iat == nil || iat.Unix() < user.PasswordUpdatedAt {
				return mserror.Unauthorized("Revoked token.")
			}

			// Store current_user for handlers.
			c.Set(CurrentUserContextKey, user)
			return next(c)
		}
	}
}
