package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// Memory is an in-process Idempotency for single-instance deployments and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) get(key string) (State, bool) {
	e, ok := m.entries[key]
	if !ok {
		return StateNone, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return StateNone, false
	}
	return e.state, true
}

func (m *Memory) set(key string, st State, ttl time.Duration) {
	m.entries[key] = memoryEntry{state: st, expiresAt: m.now().Add(ttl)}
}

func (m *Memory) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	if err := ctx.Err(); err != nil {
		return StateError, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.get(key); ok {
		return st, nil
	}
	m.set(key, StateInProgress, lockDuration)
	return StateNone, nil
}

func (m *Memory) MarkCompleted(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, StateCompleted, ttl)
	return nil
}

func (m *Memory) MarkFailed(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, StateFailed, ttl)
	return nil
}

// Exec mirrors StateTracker.Exec.
func (m *Memory) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	execOpt := &execOptions{
		lockDuration: defaultLockDuration,
		stateTTL:     defaultStateTTL,
	}
	for _, opt := range opts {
		opt(execOpt)
	}
	if execOpt.lockDuration <= 0 {
		execOpt.lockDuration = defaultLockDuration
	}
	if execOpt.stateTTL <= 0 {
		execOpt.stateTTL = defaultStateTTL
	}

	state, err := m.Acquire(ctx, key, execOpt.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		if !execOpt.retryFailed {
			return ErrAlreadyFailed
		}
		m.mu.Lock()
		m.set(key, StateInProgress, execOpt.lockDuration)
		m.mu.Unlock()
	}

	if err := fn(ctx); err != nil {
		//nolint:errcheck // in-process mark cannot fail
		_ = m.MarkFailed(ctx, key, execOpt.stateTTL)
		return err
	}

	return m.MarkCompleted(ctx, key, execOpt.stateTTL)
}
