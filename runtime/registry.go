// Package runtime owns the presence-and-delivery core: the live-connection
// registry, the presence fan-out and the delivery router. It contains no
// transport or storage code of its own.
package runtime

import (
	"chat-relay/contract"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// session binds one live connection to the registry entry that owns it. The
// session id is what distinguishes a current registration from a superseded
// one when a late unregister arrives.
type session struct {
	id   uuid.UUID
	sink contract.EventSink
}

// Registry is the identity <-> live-connection map. It is the single shared
// mutable resource of the core: every operation runs under the mutex so a
// Members snapshot always reflects one consistent before-or-after state.
//
// Each mutation also enqueues a PresenceSnapshot, captured inside the same
// critical section, for the presence worker to broadcast. Sending under the
// lock is what guarantees that snapshots enter the queue in the order the
// changes were applied; the worker only drains the channel and never touches
// the registry, so this cannot deadlock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session
	updates  chan contract.PresenceSnapshot
}

func NewRegistry(bufferSize int) *Registry {
	return &Registry{
		sessions: make(map[string]session),
		updates:  make(chan contract.PresenceSnapshot, bufferSize),
	}
}

// Updates exposes the membership-change queue consumed by the presence worker.
func (r *Registry) Updates() <-chan contract.PresenceSnapshot {
	return r.updates
}

// Register installs identity -> connection. An existing entry is silently
// overwritten: last handshake wins, a stale connection that never signaled
// close must not block a reconnecting user.
func (r *Registry) Register(identity string, sessionID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[identity] = session{id: sessionID, sink: sink}
	r.updates <- r.snapshotLocked()
}

// Unregister removes the mapping only if it still belongs to the given
// session. A late unregister from an already-superseded connection is a
// no-op, never an error.
func (r *Registry) Unregister(identity string, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[identity]
	if !ok || current.id != sessionID {
		return
	}
	delete(r.sessions, identity)
	r.updates <- r.snapshotLocked()
}

// Lookup is a pure read with no side effects.
func (r *Registry) Lookup(identity string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current, ok := r.sessions[identity]
	if !ok {
		return nil, false
	}
	return current.sink, true
}

// Members returns a sorted snapshot of the currently registered identities.
func (r *Registry) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membersLocked()
}

func (r *Registry) membersLocked() []string {
	members := make([]string, 0, len(r.sessions))
	for identity := range r.sessions {
		members = append(members, identity)
	}
	sort.Strings(members)
	return members
}

func (r *Registry) snapshotLocked() contract.PresenceSnapshot {
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, current := range r.sessions {
		sinks = append(sinks, current.sink)
	}
	return contract.PresenceSnapshot{Online: r.membersLocked(), Sinks: sinks}
}
