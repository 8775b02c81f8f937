//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/testutil"
)

func newTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}

func mustCreateUser(ctx context.Context, t *testing.T, repo *Repository, username string) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, username)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newTestEnv(t)

	username := testutil.UniqueName("alice")
	user := mustCreateUser(ctx, t, repo, username)

	retrieved, err := repo.GetUserByUsername(ctx, username)
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if retrieved.ID != user.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, user.ID)
	}
	if !retrieved.Enabled {
		t.Error("new user should be enabled")
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationUserRepository_DuplicateUsername(t *testing.T) {
	ctx, repo := newTestEnv(t)

	username := testutil.UniqueName("dup")
	mustCreateUser(ctx, t, repo, username)

	clone := testutil.NewTestUser(t, username)
	clone.Email = testutil.UniqueName("other") + "@example.com"

	err := repo.CreateUser(ctx, clone)
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Expected ErrUsernameExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_DuplicateEmail(t *testing.T) {
	ctx, repo := newTestEnv(t)

	first := mustCreateUser(ctx, t, repo, testutil.UniqueName("first"))

	clone := testutil.NewTestUser(t, testutil.UniqueName("second"))
	clone.Email = first.Email

	err := repo.CreateUser(ctx, clone)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_GetNotFound(t *testing.T) {
	ctx, repo := newTestEnv(t)

	_, err := repo.GetUserByUsername(ctx, "nonexistent-user")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationTaskRepository_CreateAndGetScoped(t *testing.T) {
	ctx, repo := newTestEnv(t)

	owner := mustCreateUser(ctx, t, repo, testutil.UniqueName("owner"))
	other := mustCreateUser(ctx, t, repo, testutil.UniqueName("other"))

	task := testutil.NewTestTask(t, owner.ID, "integration task")
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	retrieved, err := repo.GetTaskByIDAndOwner(ctx, task.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetTaskByIDAndOwner failed: %v", err)
	}
	if retrieved.Title != "integration task" {
		t.Errorf("Title mismatch: got %q", retrieved.Title)
	}

	// The same id under a different owner reads as missing.
	_, err = repo.GetTaskByIDAndOwner(ctx, task.ID, other.ID)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound for foreign owner, got: %v", err)
	}
}

func TestIntegrationTaskRepository_ListOrdering(t *testing.T) {
	ctx, repo := newTestEnv(t)

	owner := mustCreateUser(ctx, t, repo, testutil.UniqueName("lister"))

	titles := []string{"first created", "second created", "third created"}
	for _, title := range titles {
		task := testutil.NewTestTask(t, owner.ID, title)
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	tasks, err := repo.ListTasks(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != len(titles) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(titles))
	}
	// Newest first.
	if tasks[0].Title != "third created" || tasks[2].Title != "first created" {
		t.Errorf("unexpected order: %q, %q, %q", tasks[0].Title, tasks[1].Title, tasks[2].Title)
	}
}

func TestIntegrationTaskRepository_UpdateOwnerScoped(t *testing.T) {
	ctx, repo := newTestEnv(t)

	owner := mustCreateUser(ctx, t, repo, testutil.UniqueName("updater"))
	other := mustCreateUser(ctx, t, repo, testutil.UniqueName("intruder"))

	task := testutil.NewTestTask(t, owner.ID, "before update")
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task.Title = "after update"
	task.Completed = true
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	retrieved, err := repo.GetTaskByIDAndOwner(ctx, task.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetTaskByIDAndOwner failed: %v", err)
	}
	if retrieved.Title != "after update" || !retrieved.Completed {
		t.Errorf("update not applied: %+v", retrieved)
	}

	// An update attempt under the wrong owner touches nothing.
	hijack := *task
	hijack.UserID = other.ID
	hijack.Title = "hijacked"
	if err := repo.UpdateTask(ctx, &hijack); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound for foreign update, got: %v", err)
	}
}

func TestIntegrationTaskRepository_DeleteOwnerScoped(t *testing.T) {
	ctx, repo := newTestEnv(t)

	owner := mustCreateUser(ctx, t, repo, testutil.UniqueName("deleter"))
	other := mustCreateUser(ctx, t, repo, testutil.UniqueName("bystander"))

	task := testutil.NewTestTask(t, owner.ID, "delete me")
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if err := repo.DeleteTask(ctx, task.ID, other.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound for foreign delete, got: %v", err)
	}

	if err := repo.DeleteTask(ctx, task.ID, owner.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	if _, err := repo.GetTaskByIDAndOwner(ctx, task.ID, owner.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound after delete, got: %v", err)
	}
}

func TestIntegrationTaskRepository_CascadeOnUserDelete(t *testing.T) {
	ctx, repo := newTestEnv(t)

	owner := mustCreateUser(ctx, t, repo, testutil.UniqueName("doomed"))
	task := testutil.NewTestTask(t, owner.ID, "orphan candidate")
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := repo.Pool().Exec(ctx, "DELETE FROM users WHERE id = $1", owner.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	tasks, err := repo.ListTasks(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected cascade delete, found %d tasks", len(tasks))
	}
}
