package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/auth"
)

var testCodec = auth.NewTokenCodec([]byte("test-secret-key-at-least-32-bytes!!"), time.Hour)

func newAuthService(store *memStore) *AuthService {
	return NewAuthService(store, testCodec, nil)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	svc := newAuthService(store)

	result, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if result.Token == "" {
		t.Error("Register() returned empty token")
	}
	if result.User.ID == "" {
		t.Error("Register() returned empty user id")
	}
	if !result.User.Enabled {
		t.Error("new accounts should be enabled")
	}
	if result.User.PasswordHash == "correct horse battery" {
		t.Error("password stored in plaintext")
	}

	// The issued token must verify and carry the username.
	claims, err := testCodec.Verify(result.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("token subject = %q, want %q", claims.Subject, "alice")
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{
			name:  "blank username",
			input: RegisterInput{Username: "   ", Email: "a@b.com", Password: "longenough"},
			field: "username",
		},
		{
			name:  "username too short",
			input: RegisterInput{Username: "ab", Email: "a@b.com", Password: "longenough"},
			field: "username",
		},
		{
			name:  "username too long",
			input: RegisterInput{Username: strings.Repeat("a", 51), Email: "a@b.com", Password: "longenough"},
			field: "username",
		},
		{
			name:  "missing email",
			input: RegisterInput{Username: "alice", Email: "", Password: "longenough"},
			field: "email",
		},
		{
			name:  "malformed email",
			input: RegisterInput{Username: "alice", Email: "not-an-email", Password: "longenough"},
			field: "email",
		},
		{
			name:  "password too short",
			input: RegisterInput{Username: "alice", Email: "a@b.com", Password: "short"},
			field: "password",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newAuthService(newMemStore())
			_, err := svc.Register(ctx, tt.input)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Register() error = %v, want ValidationError", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("ValidationError fields = %v, want one for %q", verr.Fields, tt.field)
			}
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	svc := newAuthService(store)

	if _, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "longenough",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "longenough",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
	}

	_, err = svc.Register(ctx, RegisterInput{
		Username: "bob",
		Email:    "alice@example.com",
		Password: "longenough",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	// Failed registrations must not leave partial state behind.
	if len(store.users) != 1 {
		t.Errorf("user count = %d, want 1", len(store.users))
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	svc := newAuthService(store)

	if _, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "longenough",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "longenough"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	claims, err := testCodec.Verify(result.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("token subject = %q, want %q", claims.Subject, "alice")
	}
}

func TestLoginUniformFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	svc := newAuthService(store)

	if _, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "longenough",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Unknown user and wrong password must be indistinguishable.
	_, unknownErr := svc.Login(ctx, LoginInput{Username: "nobody", Password: "longenough"})
	_, wrongErr := svc.Login(ctx, LoginInput{Username: "alice", Password: "wrongpassword"})

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("failure messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	svc := newAuthService(store)

	if _, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "longenough",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	store.users["alice"].Enabled = false

	// Even the correct password is rejected once the account is disabled,
	// with an error distinct from bad credentials.
	_, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "longenough"})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled account error = %v, want ErrAccountDisabled", err)
	}
}
