package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// Auth service errors.
var (
	// ErrUsernameTaken and ErrEmailTaken are surfaced both from the
	// pre-insert existence checks and from the database's own unique
	// constraints when two registrations race.
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("email is already in use")

	// ErrInvalidCredentials deliberately does not distinguish a missing
	// user from a wrong password, to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountDisabled is a distinct, explicit rejection.
	ErrAccountDisabled = errors.New("account is disabled")
)

// UserStore is the persistence surface the auth service needs.
// *repository.Repository satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// AuthService handles registration and login.
type AuthService struct {
	users   UserStore
	codec   *auth.TokenCodec
	metrics metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, codec *auth.TokenCodec, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:   users,
		codec:   codec,
		metrics: recorder,
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is the outcome of a successful registration or login.
type AuthResult struct {
	Token string
	User  *model.User
}

// Register creates a new account and issues its first token.
// Uniqueness is checked before the insert; the database's unique
// constraints remain the safety net for concurrent registrations.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	var verr ValidationError
	if msg := validUsername(input.Username); msg != "" {
		verr.add("username", msg)
	}
	if msg := validEmail(input.Email); msg != "" {
		verr.add("email", msg)
	}
	if msg := validPassword(input.Password); msg != "" {
		verr.add("password", msg)
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	taken, err := s.users.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.users.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.codec.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncUserRegistered()

	return &AuthResult{Token: token, User: user}, nil
}

// LoginInput defines input for logging in.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and issues a fresh token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a hash verification anyway so a missing user costs
			// about the same as a wrong password.
			_, _ = auth.VerifyPassword(input.Password, dummyHash)
			s.metrics.IncLoginFailure()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.Enabled {
		s.metrics.IncLoginFailure()
		return nil, ErrAccountDisabled
	}

	match, err := auth.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !match {
		s.metrics.IncLoginFailure()
		return nil, ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncLoginSuccess()

	return &AuthResult{Token: token, User: user}, nil
}

// dummyHash is a real argon2id hash of a throwaway value, used to keep
// login timing uniform when the username does not exist.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRzb21lc2FsdA$K5Xd2tLkBPQAp13K26nmUY0lPXUwoXB6QQ0yoY95wbA"
