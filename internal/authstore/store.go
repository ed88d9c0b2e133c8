// Package authstore holds the authenticated identity of one browser session.
package authstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrNotFound is returned by persisters when no session was saved.
	ErrNotFound = errors.New("authstore: session not found")
	// ErrUserRequired rejects SetAuth without a user.
	ErrUserRequired = errors.New("authstore: user required")
)

// Persister saves and loads snapshots by key.
type Persister interface {
	Save(ctx context.Context, key string, snap Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, error)
}

// Store is a mutable cell holding the session identity. Reads are served from
// memory; every mutation is written through to the persister.
type Store struct {
	key       string
	persister Persister

	// writeMu serialises mutations so persisted order matches memory order.
	writeMu sync.Mutex
	mu      sync.RWMutex
	snap    Snapshot

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// New returns an empty store. A nil persister keeps the store in memory only.
func New(key string, persister Persister) *Store {
	return &Store{key: key, persister: persister, snap: Empty(), subs: make(map[int]func(Snapshot))}
}

// Restore loads the snapshot saved under key. Missing or unreadable entries
// produce an empty store; the restored identity is trusted until the remote
// API rejects it.
func Restore(ctx context.Context, key string, persister Persister, logger *slog.Logger) *Store {
	s := New(key, persister)
	if persister == nil {
		return s
	}
	snap, err := persister.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && logger != nil {
			logger.Warn("restore auth session", slog.String("key", key), slog.Any("error", err))
		}
		return s
	}
	s.snap = normalize(snap)
	return s
}

// Key returns the persistence key.
func (s *Store) Key() string {
	return s.key
}

// SetAuth replaces user, roles and permissions in one step.
func (s *Store) SetAuth(ctx context.Context, auth Auth) error {
	if auth.User == nil {
		return ErrUserRequired
	}
	next := normalize(Snapshot{User: auth.User, Roles: auth.Roles, Permissions: auth.Permissions}).clone()
	return s.replace(ctx, next)
}

// Clear resets the store to the signed-out state and persists it.
func (s *Store) Clear(ctx context.Context) error {
	return s.replace(ctx, Empty())
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// UserID returns the current user id or "".
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.User == nil {
		return ""
	}
	return s.snap.User.ID
}

// IsAuthenticated reports whether a user is present.
func (s *Store) IsAuthenticated() bool {
	return s.UserID() != ""
}

// Subscribe registers fn to be called after every mutation. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) replace(ctx context.Context, next Snapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	var err error
	if s.persister != nil {
		err = s.persister.Save(ctx, s.key, next)
	}
	s.notify(next)
	return err
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap.clone())
	}
}
