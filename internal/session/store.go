package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Store keeps the live sessions of this process in memory.
type Store struct {
	deps Deps
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewStore(d Deps) *Store {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Store{deps: d, now: time.Now, sessions: make(map[uuid.UUID]*Session)}
}

// Create opens a session and loads its catalog. A catalog load failure does
// not prevent the session from being created; the error is returned along
// with it so the caller can show it and offer a reload.
func (st *Store) Create(ctx context.Context, surface string) (*Session, error) {
	s := New(surface, st.deps)
	s.Touch(st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.deps.Log.Info("session created", zap.String("session_id", s.ID.String()), zap.String("surface", s.Surface))
	return s, s.LoadCatalog(ctx)
}

// Get returns the session and records activity on it.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.Touch(st.now())
	return s, nil
}

func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were dropped.
func (st *Store) Sweep(maxIdle time.Duration) int {
	cutoff := st.now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(st.sessions, id)
			n++
		}
	}
	if n > 0 {
		st.deps.Log.Info("idle sessions swept", zap.Int("count", n))
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (st *Store) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(maxIdle)
		}
	}
}
