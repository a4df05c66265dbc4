package runtime

import (
	"bookchat/contract"
	"sync"
)

// Registry maps a user identity to the set of live sessions that identity
// currently has open. It is the single shared piece of relay state and is
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]contract.Session // identity -> session ID -> session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]map[string]contract.Session)}
}

// Add associates a session with an identity. It always succeeds: a session
// registered under an empty identity is admitted but will never match a
// stored message's participant fields, so it is simply unreachable.
func (r *Registry) Add(identity string, s contract.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[identity]
	if !ok {
		set = make(map[string]contract.Session)
		r.sessions[identity] = set
	}
	set[s.ID()] = s
}

// Remove disassociates a session from an identity. Removing a pair that was
// never registered is a no-op: a session racing its own startup may be
// removed at close time without ever having been added.
// Empty sets are dropped to prevent the identity map growing forever.
func (r *Registry) Remove(identity string, s contract.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[identity]
	if !ok {
		return
	}
	delete(set, s.ID())
	if len(set) == 0 {
		delete(r.sessions, identity)
	}
}

// SessionsFor returns all currently live sessions for an identity.
// An unknown identity yields an empty result, never an error.
func (r *Registry) SessionsFor(identity string) []contract.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.sessions[identity]
	if !ok {
		return nil
	}
	out := make([]contract.Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// Snapshot reports current occupancy for telemetry.
func (r *Registry) Snapshot() (identities, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, set := range r.sessions {
		connections += len(set)
	}
	return len(r.sessions), connections
}
