package auth

import (
	"context"
	"testing"

	"github.com/taskdeck/taskdeck/internal/model"
)

func TestIdentityFromContext_Empty(t *testing.T) {
	t.Parallel()

	if id := IdentityFromContext(context.Background()); id != nil {
		t.Errorf("expected nil identity from empty context, got %+v", id)
	}

	if name := UsernameFromContext(context.Background()); name != "" {
		t.Errorf("expected empty username from empty context, got %q", name)
	}
}

func TestContextWithIdentity_RoundTrip(t *testing.T) {
	t.Parallel()

	identity := &model.Identity{
		UserID:   "01HV5WXAMPLE",
		Username: "alice",
		Enabled:  true,
	}

	ctx := ContextWithIdentity(context.Background(), identity)

	got := IdentityFromContext(ctx)
	if got == nil {
		t.Fatal("expected identity in context")
	}
	if got.Username != "alice" || got.UserID != "01HV5WXAMPLE" {
		t.Errorf("unexpected identity: %+v", got)
	}

	if name := UsernameFromContext(ctx); name != "alice" {
		t.Errorf("UsernameFromContext = %q, want %q", name, "alice")
	}
}

func TestMustIdentityFromContext_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for missing identity")
		}
	}()

	MustIdentityFromContext(context.Background())
}
