// Package session holds the authenticated-user context of one client and the
// guard that decides what a protected route may do with it.
//
// A Session starts in StateResolving. The first Resolve moves it to
// StateAuthenticated or StateUnauthenticated and closes Done; later calls
// (login, logout, profile updates) keep notifying subscribers. A session made
// with NewDeferred only starts resolving when it is first awaited.
package session

import (
	"context"
	"sync"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
)

type State int

const (
	StateResolving State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "resolving"
	}
}

// Listener is called after every state change, outside the session lock.
type Listener func(state State, user *entity.User)

type Session struct {
	mu        sync.RWMutex
	state     State
	user      *entity.User
	done      chan struct{}
	closeOnce sync.Once
	listeners map[int]Listener
	nextID    int

	resolver  func(ctx context.Context, s *Session)
	startOnce sync.Once
}

func New() *Session {
	return &Session{
		state:     StateResolving,
		done:      make(chan struct{}),
		listeners: map[int]Listener{},
	}
}

// NewDeferred returns a resolving session. resolver runs once, in its own
// goroutine, on the first Await and must call Resolve. It never runs if the
// session is resolved explicitly first.
func NewDeferred(resolver func(ctx context.Context, s *Session)) *Session {
	s := New()
	s.resolver = resolver
	return s
}

func (s *Session) start(ctx context.Context) {
	if s.resolver == nil {
		return
	}
	s.startOnce.Do(func() { go s.resolver(ctx, s) })
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns a copy of the signed-in user, or nil. It never does I/O.
func (s *Session) Current() *entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return nil
	}
	return s.user.Clone()
}

// Resolve sets the current user; nil means signed out.
func (s *Session) Resolve(u *entity.User) {
	s.startOnce.Do(func() {})
	s.mu.Lock()
	if u == nil {
		s.state = StateUnauthenticated
		s.user = nil
	} else {
		s.state = StateAuthenticated
		s.user = u.Clone()
	}
	state, user := s.state, s.user.Clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.done) })
	for _, l := range listeners {
		l(state, user)
	}
}

// Clear signs the session out. Clearing an unauthenticated session is a no-op transition.
func (s *Session) Clear() { s.Resolve(nil) }

// Done is closed once the session leaves StateResolving. It does not start a
// deferred resolver; Await does.
func (s *Session) Done() <-chan struct{} { return s.done }

// Await blocks until the session is resolved and returns the current user (nil when signed out).
func (s *Session) Await(ctx context.Context) (*entity.User, error) {
	s.start(ctx)
	select {
	case <-s.done:
		return s.Current(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers l for state changes. The returned func removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
