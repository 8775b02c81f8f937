package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

// taskListPrefix is the Redis key prefix for per-user task list caches.
// Only task lists are cached; the authenticated identity is derived
// fresh from the token on every request and is never stored here.
const taskListPrefix = keyPrefix + "tasks:user:"

// taskListKey builds the cache key for one owner's task list.
func taskListKey(ownerID string) string {
	return taskListPrefix + ownerID
}

// GetTaskList retrieves a cached task list for the given owner.
// Returns nil on a cache miss; a miss is not an error.
func (c *Cache) GetTaskList(ctx context.Context, ownerID string) ([]*model.Task, error) {
	data, err := c.client.Get(ctx, taskListKey(ownerID)).Bytes()
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	var tasks []*model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return tasks, nil
}

// SetTaskList caches an owner's full task list with the given TTL.
func (c *Cache) SetTaskList(ctx context.Context, ownerID string, tasks []*model.Task, ttl time.Duration) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal task list: %w", err)
	}

	return c.client.Set(ctx, taskListKey(ownerID), data, ttl).Err()
}

// InvalidateTaskList drops the cached task list for an owner.
// Called after every task mutation.
func (c *Cache) InvalidateTaskList(ctx context.Context, ownerID string) error {
	return c.client.Del(ctx, taskListKey(ownerID)).Err()
}
