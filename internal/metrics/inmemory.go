package metrics

import (
	"sync"
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered     uint64
	LoginSuccesses      uint64
	LoginFailures       uint64
	TokensRejected      map[string]uint64
	TasksCreated        uint64
	TasksUpdated        uint64
	TasksDeleted        uint64
	TasksToggled        uint64
	TaskListCacheHits   uint64
	TaskListCacheMisses uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	usersRegistered     uint64
	loginSuccesses      uint64
	loginFailures       uint64
	tasksCreated        uint64
	tasksUpdated        uint64
	tasksDeleted        uint64
	tasksToggled        uint64
	taskListCacheHits   uint64
	taskListCacheMisses uint64

	mu             sync.Mutex
	tokensRejected map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{tokensRejected: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := make(map[string]uint64, len(m.tokensRejected))
	for k, v := range m.tokensRejected {
		rejected[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		UsersRegistered:     atomic.LoadUint64(&m.usersRegistered),
		LoginSuccesses:      atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:       atomic.LoadUint64(&m.loginFailures),
		TokensRejected:      rejected,
		TasksCreated:        atomic.LoadUint64(&m.tasksCreated),
		TasksUpdated:        atomic.LoadUint64(&m.tasksUpdated),
		TasksDeleted:        atomic.LoadUint64(&m.tasksDeleted),
		TasksToggled:        atomic.LoadUint64(&m.tasksToggled),
		TaskListCacheHits:   atomic.LoadUint64(&m.taskListCacheHits),
		TaskListCacheMisses: atomic.LoadUint64(&m.taskListCacheMisses),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLoginSuccess increments the successful login counter.
func (m *InMemoryRecorder) IncLoginSuccess() {
	atomic.AddUint64(&m.loginSuccesses, 1)
}

// IncLoginFailure increments the failed login counter.
func (m *InMemoryRecorder) IncLoginFailure() {
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncTokenRejected increments the rejection counter for a reason.
func (m *InMemoryRecorder) IncTokenRejected(reason string) {
	m.mu.Lock()
	m.tokensRejected[reason]++
	m.mu.Unlock()
}

// IncTaskCreated increments the task created counter.
func (m *InMemoryRecorder) IncTaskCreated() {
	atomic.AddUint64(&m.tasksCreated, 1)
}

// IncTaskUpdated increments the task updated counter.
func (m *InMemoryRecorder) IncTaskUpdated() {
	atomic.AddUint64(&m.tasksUpdated, 1)
}

// IncTaskDeleted increments the task deleted counter.
func (m *InMemoryRecorder) IncTaskDeleted() {
	atomic.AddUint64(&m.tasksDeleted, 1)
}

// IncTaskToggled increments the task toggle counter.
func (m *InMemoryRecorder) IncTaskToggled() {
	atomic.AddUint64(&m.tasksToggled, 1)
}

// IncTaskListCacheHit increments the cache hit counter.
func (m *InMemoryRecorder) IncTaskListCacheHit() {
	atomic.AddUint64(&m.taskListCacheHits, 1)
}

// IncTaskListCacheMiss increments the cache miss counter.
func (m *InMemoryRecorder) IncTaskListCacheMiss() {
	atomic.AddUint64(&m.taskListCacheMisses, 1)
}
