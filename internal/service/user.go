package service

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/validation"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
)

// Issuer is the issuer of the tokens.
const Issuer = "github.com/mdouchement/memeswipe"

// ClaimUserID is the JWT claim holding the user id.
const ClaimUserID = "user_id"

type (
	// Users registers and authenticates users.
	Users struct {
		db             database.Client
		validate       *validation.Validator
		signingKey     []byte
		ttl            time.Duration
		noRegistration bool
	}

	// RegisterParams are used to register a user.
	RegisterParams struct {
		Username string `json:"username" validate:"required,min=3,max=20,username"`
		Email    string `json:"email"    validate:"required,email"`
		Name     string `json:"name"     validate:"max=50"`
		Password string `json:"password" validate:"required,min=6,max=100,password"`
	}

	// LoginParams are used to login a user.
	LoginParams struct {
		Email    string `json:"email"    validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	// A Session is the result of a successful authentication.
	Session struct {
		User  *model.User
		Token string
	}
)

// NewUsers returns a new Users.
// A zero ttl issues tokens without expiration.
func NewUsers(db database.Client, signingKey []byte, ttl time.Duration, noRegistration bool) *Users {
	return &Users{
		db:             db,
		validate:       validation.New(),
		signingKey:     signingKey,
		ttl:            ttl,
		noRegistration: noRegistration,
	}
}

// Register creates the user and returns its session.
func (s *Users) Register(params RegisterParams) (*Session, error) {
	if s.noRegistration {
		return nil, mserror.Forbidden("Registration is disabled.")
	}

	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}

	// Check if the email is free to use.
	if _, err := s.db.FindUserByMail(params.Email); err == nil {
		return nil, mserror.InvalidInput("This email is already registered.")
	} else if !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}

	user := &model.User{
		Username: params.Username,
		Email:    params.Email,
		Name:     params.Name,
	}
	if user.Name == "" {
		user.Name = user.Username
	}

	// Crypt password
	var err error
	user.Password, err = argon2.GenerateFromPasswordString(params.Password, argon2.Default)
	if err != nil {
		return nil, errors.Wrap(err, "could not store user password safe")
	}
	user.PasswordUpdatedAt = time.Now().Unix()

	// Persist the model
	if err = s.db.Save(user); err != nil {
		if s.db.IsAlreadyExists(err) {
			return nil, mserror.InvalidInput("This username or email is already taken.")
		}
		return nil, errors.Wrap(err, "could not persist user")
	}

	return s.session(user)
}

// Login checks the credentials and returns the user's session.
func (s *Users) Login(params LoginParams) (*Session, error) {
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}

	user, err := s.db.FindUserByMail(params.Email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, mserror.Unauthorized("Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	// Verify password
	if err = argon2.CompareHashAndPasswordString(user.Password, params.Password); err != nil {
		if err == argon2.ErrMismatchedHashAndPassword {
			return nil, mserror.Unauthorized("Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not validate password")
	}

	return s.session(user)
}

func (s *Users) session(user *model.User) (*Session, error) {
	token, err := s.Token(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// Token returns a signed JWT for the user.
func (s *Users) Token(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		ClaimUserID: user.ID,
		"iss":       Issuer,
		"iat":       now.Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	return token, errors.Wrap(err, "could not generate token")
}
