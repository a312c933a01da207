package session

import "sync"

// registry maps keys to their live session. Lock order is registry.mu before
// session.mu; a session never calls into the registry while holding its own
// lock.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

// acquire installs s for key. A previous session for key is torn down before
// s becomes visible.
func (r *registry) acquire(key string, s *session) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[key]; ok {
		delete(r.sessions, key)
		old.teardown()
		replaced = true
	}
	r.sessions[key] = s
	return replaced
}

// release removes and tears down whatever session key has.
func (r *registry) release(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	delete(r.sessions, key)
	s.teardown()
	return true
}

// releaseIf removes s only if it is still the session for key, and tears s
// down either way. A finished session must not evict its replacement.
func (r *registry) releaseIf(key string, s *session) {
	r.mu.Lock()
	if cur, ok := r.sessions[key]; ok && cur == s {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	s.teardown()
}

func (r *registry) get(key string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	return keys
}

// drain tears down every session and empties the registry.
func (r *registry) drain() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.sessions)
	for key, s := range r.sessions {
		delete(r.sessions, key)
		s.teardown()
	}
	return n
}
