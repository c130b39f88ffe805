package session

import "sync"

// RelayMap records which operator bridges a customer's live chat.
type RelayMap struct {
	mu       sync.RWMutex
	bindings map[int64]int64
}

// NewRelayMap constructs an empty RelayMap.
func NewRelayMap() *RelayMap {
	return &RelayMap{bindings: make(map[int64]int64)}
}

// Bind points user at admin, replacing any earlier binding.
func (r *RelayMap) Bind(user, admin int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[user] = admin
}

// Unbind removes the binding for user and returns the admin it pointed at.
func (r *RelayMap) Unbind(user int64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.bindings[user]
	if ok {
		delete(r.bindings, user)
	}
	return admin, ok
}

// Lookup returns the admin bound to user.
func (r *RelayMap) Lookup(user int64) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.bindings[user]
	return admin, ok
}

// Len returns the number of live bindings.
func (r *RelayMap) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
