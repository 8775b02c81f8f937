package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// ErrTaskNotFound covers a missing task and a task owned by someone
// else. Callers cannot tell the two apart.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore is the persistence surface the task service needs.
// *repository.Repository satisfies it. Every lookup and mutation is
// scoped to the owning user; the store exposes no unscoped access.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]*model.Task, error)
	ListTasksByCompletion(ctx context.Context, ownerID string, completed bool) ([]*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, id, ownerID string) error
}

// UserResolver resolves an authenticated username to its user record.
type UserResolver interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// TaskService handles task business logic. Every operation takes the
// caller's authenticated username and resolves the target task through
// the owner-scoped store, so a task is never addressable by id alone.
type TaskService struct {
	tasks    TaskStore
	users    UserResolver
	cache    *cache.Cache
	cacheTTL time.Duration
	metrics  metrics.Recorder
	sf       singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(tasks TaskStore, users UserResolver, c *cache.Cache, cacheTTL time.Duration, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		tasks:    tasks,
		users:    users,
		cache:    c,
		cacheTTL: cacheTTL,
		metrics:  recorder,
	}
}

// resolveOwner maps the authenticated username to its user id.
// The username always comes from a verified token, so a missing row
// means the account vanished mid-session; surface it as a plain error.
func (s *TaskService) resolveOwner(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("resolve user %q: %w", username, err)
	}
	return user.ID, nil
}

// List returns all of the caller's tasks, newest first.
func (s *TaskService) List(ctx context.Context, username string) ([]*model.Task, error) {
	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.tasks.ListTasks(ctx, ownerID)
	}

	// singleflight collapses concurrent cache-miss refills for the
	// same owner into one database query.
	v, err, _ := s.sf.Do("list:"+ownerID, func() (any, error) {
		if cached, err := s.cache.GetTaskList(ctx, ownerID); err == nil && cached != nil {
			s.metrics.IncTaskListCacheHit()
			return cached, nil
		}
		s.metrics.IncTaskListCacheMiss()

		tasks, err := s.tasks.ListTasks(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetTaskList(ctx, ownerID, tasks, s.cacheTTL)
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Task), nil
}

// ListCompleted returns the caller's completed tasks, newest first.
func (s *TaskService) ListCompleted(ctx context.Context, username string) ([]*model.Task, error) {
	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tasks.ListTasksByCompletion(ctx, ownerID, true)
}

// ListIncomplete returns the caller's incomplete tasks, newest first.
func (s *TaskService) ListIncomplete(ctx context.Context, username string) ([]*model.Task, error) {
	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tasks.ListTasksByCompletion(ctx, ownerID, false)
}

// Get returns one of the caller's tasks by id.
func (s *TaskService) Get(ctx context.Context, username, taskID string) (*model.Task, error) {
	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetTaskByIDAndOwner(ctx, taskID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// CreateTaskInput defines input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
}

// Create validates the draft and persists it owned by the caller.
func (s *TaskService) Create(ctx context.Context, username string, input CreateTaskInput) (*model.Task, error) {
	var verr ValidationError
	if msg := validTitle(input.Title); msg != "" {
		verr.add("title", msg)
	}
	if msg := validDescription(input.Description); msg != "" {
		verr.add("description", msg)
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &model.Task{
		ID:          ulid.Make().String(),
		Title:       input.Title,
		Description: input.Description,
		Completed:   false,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.metrics.IncTaskCreated()
	s.invalidateTaskList(ctx, ownerID)

	return task, nil
}

// UpdateTaskInput defines input for updating a task.
// Nil fields are left unchanged. Owner, id and creation time are
// immutable regardless of input.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Update applies a patch to one of the caller's tasks.
func (s *TaskService) Update(ctx context.Context, username, taskID string, input UpdateTaskInput) (*model.Task, error) {
	var verr ValidationError
	if input.Title != nil {
		if msg := validTitle(*input.Title); msg != "" {
			verr.add("title", msg)
		}
	}
	if input.Description != nil {
		if msg := validDescription(*input.Description); msg != "" {
			verr.add("description", msg)
		}
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetTaskByIDAndOwner(ctx, taskID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Completed != nil {
		task.Completed = *input.Completed
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	s.metrics.IncTaskUpdated()
	s.invalidateTaskList(ctx, ownerID)

	return task, nil
}

// Delete removes one of the caller's tasks.
func (s *TaskService) Delete(ctx context.Context, username, taskID string) error {
	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return err
	}

	if err := s.tasks.DeleteTask(ctx, taskID, ownerID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.metrics.IncTaskDeleted()
	s.invalidateTaskList(ctx, ownerID)

	return nil
}

// ToggleCompletion flips the completed flag on one of the caller's tasks.
func (s *TaskService) ToggleCompletion(ctx context.Context, username, taskID string) (*model.Task, error) {
	ownerID, err := s.resolveOwner(ctx, username)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetTaskByIDAndOwner(ctx, taskID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task.Completed = !task.Completed
	task.UpdatedAt = time.Now().UTC()

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	s.metrics.IncTaskToggled()
	s.invalidateTaskList(ctx, ownerID)

	return task, nil
}

// invalidateTaskList drops the cached list after a mutation.
// Cache errors are swallowed; the TTL bounds staleness.
func (s *TaskService) invalidateTaskList(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.InvalidateTaskList(ctx, ownerID)
}
