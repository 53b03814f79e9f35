//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain/event"
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the push side of one live connection. Consume must be safe to
// call after the connection closed; a closed connection swallows the event.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// PresenceSnapshot is one consistent view of the registry, captured under its
// lock at the moment a membership change was applied. Sinks holds the
// connections that were registered at that same moment, so a broadcast never
// mixes two registry states.
type PresenceSnapshot struct {
	Online []string
	Sinks  []EventSink
}

// IRegistry is the identity <-> live-connection map, the single source of
// truth for who is online.
type IRegistry interface {
	Register(identity string, sessionID uuid.UUID, sink EventSink)
	Unregister(identity string, sessionID uuid.UUID)
	Lookup(identity string) (EventSink, bool)
	Members() []string
}
