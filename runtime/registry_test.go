package runtime

import (
	"chat-relay/domain/event"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSink struct{}

func (s stubSink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Register_One_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(64)
	identity := uuid.NewString()
	sessionID := uuid.New()
	sink := stubSink{}

	// Given no user is connected
	req.Empty(registry.Members())

	// When an identity registers
	registry.Register(identity, sessionID, sink)

	// Then
	req.Equal([]string{identity}, registry.Members())
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Equal(sink, found)
}

func TestRegistry_Register_Overwrites_Previous_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(64)
	identity := uuid.NewString()
	firstSession := uuid.New()
	secondSession := uuid.New()
	firstSink := &countingSink{}
	secondSink := &countingSink{}

	// Given a first handshake
	registry.Register(identity, firstSession, firstSink)

	// When the same identity handshakes again
	registry.Register(identity, secondSession, secondSink)

	// Then last handshake wins, silently
	req.Equal([]string{identity}, registry.Members())
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Same(secondSink, found)
}

func TestRegistry_Unregister_Removes_Mapping(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(64)
	identity := uuid.NewString()
	sessionID := uuid.New()

	// Given a registered identity
	registry.Register(identity, sessionID, stubSink{})

	// When it unregisters with its own session id
	registry.Unregister(identity, sessionID)

	// Then no member is left
	req.Empty(registry.Members())
	_, ok := registry.Lookup(identity)
	req.False(ok)
}

func TestRegistry_Stale_Unregister_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(64)
	identity := uuid.NewString()
	staleSession := uuid.New()
	currentSession := uuid.New()
	currentSink := &countingSink{}

	// Given a session superseded by a newer handshake
	registry.Register(identity, staleSession, &countingSink{})
	registry.Register(identity, currentSession, currentSink)

	// When the stale session signals close late
	registry.Unregister(identity, staleSession)

	// Then the newer registration survives
	req.Equal([]string{identity}, registry.Members())
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Same(currentSink, found)
}

func TestRegistry_Unregister_Unknown_Identity_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(64)

	registry.Unregister(uuid.NewString(), uuid.New())

	req.Empty(registry.Members())
}

func TestRegistry_Members_Is_Sorted_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(64)

	registry.Register("charlie", uuid.New(), stubSink{})
	registry.Register("alice", uuid.New(), stubSink{})
	registry.Register("bob", uuid.New(), stubSink{})

	req.Equal([]string{"alice", "bob", "charlie"}, registry.Members())
}

func TestRegistry_Snapshots_Follow_Membership_Changes(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(64)
	aliceSession := uuid.New()

	// When two registrations and one unregistration happen
	registry.Register("alice", aliceSession, stubSink{})
	registry.Register("bob", uuid.New(), stubSink{})
	registry.Unregister("alice", aliceSession)

	// Then the queue holds one consistent snapshot per change, in order
	req.Equal([]string{"alice"}, (<-registry.Updates()).Online)
	req.Equal([]string{"alice", "bob"}, (<-registry.Updates()).Online)
	req.Equal([]string{"bob"}, (<-registry.Updates()).Online)
}

func TestRegistry_Concurrent_Register_Unregister(t *testing.T) {
	req := require.New(t)
	const workers = 32
	registry := NewRegistry(workers * 2)

	// Drain presence snapshots so mutations never block
	go func() {
		for range registry.Updates() {
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identity := uuid.NewString()
			sessionID := uuid.New()
			registry.Register(identity, sessionID, stubSink{})
			registry.Lookup(identity)
			registry.Unregister(identity, sessionID)
		}()
	}
	wg.Wait()

	req.Empty(registry.Members())
}

// countingSink records every consumed event, for assertions on fan-out.
type countingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *countingSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *countingSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}
