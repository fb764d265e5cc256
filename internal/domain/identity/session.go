package identity

import "sync"

// Session exposes the current authenticated actor and notifies watchers when
// it changes. A nil actor means logged out.
type Session interface {
	Current() *Actor
	// Watch registers fn and immediately delivers the current actor to it.
	// The returned stop function unregisters fn.
	Watch(fn func(*Actor)) (stop func())
}

// MemorySession is a process-local Session. Set delivers the new actor to
// every watcher synchronously and in registration order; concurrent Set calls
// are serialized so watchers observe changes in the order they happened.
// Watchers must not call back into the session.
type MemorySession struct {
	mu       sync.Mutex
	current  *Actor
	watchers map[int]func(*Actor)
	order    []int
	nextID   int
}

// NewMemorySession creates a session, optionally already logged in
func NewMemorySession(initial *Actor) *MemorySession {
	return &MemorySession{
		current:  cloneActor(initial),
		watchers: make(map[int]func(*Actor)),
	}
}

// Current returns a copy of the current actor
func (s *MemorySession) Current() *Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneActor(s.current)
}

// Set replaces the current actor. Pass nil to log out.
func (s *MemorySession) Set(actor *Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = cloneActor(actor)
	for _, id := range s.order {
		if fn, ok := s.watchers[id]; ok {
			fn(cloneActor(s.current))
		}
	}
}

// Watch implements Session
func (s *MemorySession) Watch(fn func(*Actor)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.order = append(s.order, id)
	fn(cloneActor(s.current))
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func cloneActor(a *Actor) *Actor {
	if a == nil {
		return nil
	}
	c := *a
	c.Permissions = append(Capabilities(nil), a.Permissions...)
	return &c
}

var _ Session = (*MemorySession)(nil)
