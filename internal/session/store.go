package session

import "sync"

// Store maps user ids to sessions. Sessions are created lazily in MainMenu.
// All accessors return copies; mutation goes through Update or CompareAndSwap.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	keys     *keyedMutex
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		keys:     newKeyedMutex(),
	}
}

func (s *Store) getOrCreate(id int64) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = fresh()
		s.sessions[id] = sess
	}
	return sess
}

// Get returns the session for id, creating it when absent.
func (s *Store) Get(id int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreate(id)
}

// Peek returns the session for id without creating one.
func (s *Store) Peek(id int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Update applies fn to the session for id atomically and returns the result.
func (s *Store) Update(id int64, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreate(id)
	if fn != nil {
		fn(sess)
	}
	return *sess
}

// CompareAndSwap applies fn only when the current state equals from.
// It reports whether fn ran. A missing session counts as MainMenu.
func (s *Store) CompareAndSwap(id int64, from State, fn func(*Session)) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreate(id)
	if sess.State != from {
		return *sess, false
	}
	if fn != nil {
		fn(sess)
	}
	return *sess, true
}

// Reset replaces the session for id with a fresh MainMenu session.
func (s *Store) Reset(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = fresh()
}

// Delete removes the session for id.
func (s *Store) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Lock serialises event handling for one user. Call the returned func to release.
func (s *Store) Lock(id int64) func() {
	return s.keys.lock(id)
}
