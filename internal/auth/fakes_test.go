package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore implements UserStore and AttemptLedger.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]User
	attempts []LoginAttempt

	getErr    error
	recordErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]User)}
}

func (m *memoryStore) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) GetByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return User{}, m.getErr
	}
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryStore) GetByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return User{}, m.getErr
	}
	user, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *memoryStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.LastLogin = &at
	m.users[id] = user
	return nil
}

func (m *memoryStore) UpdatePasswordHash(_ context.Context, id, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = at
	m.users[id] = user
	return nil
}

func (m *memoryStore) deleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *memoryStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memoryStore) RecordAttempt(_ context.Context, attempt LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recordErr != nil {
		return m.recordErr
	}
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *memoryStore) FailedAttemptsSince(_ context.Context, username string, since time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []time.Time
	for _, a := range m.attempts {
		if a.Username == username && a.Outcome == OutcomeFailed && a.AttemptedAt.After(since) {
			out = append(out, a.AttemptedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *memoryStore) attemptCount(outcome AttemptOutcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, a := range m.attempts {
		if a.Outcome == outcome {
			n++
		}
	}
	return n
}
