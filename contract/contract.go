//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"bookchat/domain"
	"context"
	"reflect"
)

// Session is one live bidirectional channel to a client process.
// A user may own several sessions at once (multi-tab, multi-device).
type Session interface {
	// ID is the transport-level session identifier, unique per connection.
	ID() string
	// Identity is the user identity declared at handshake time.
	Identity() string
	// Deliver pushes a stored message to the client. It must not block;
	// an error means this one push is lost, not that the session is dead.
	Deliver(msg domain.StoredMessage) error
}

// IMessageStore is the persistence gateway. Store durably persists a
// draft and returns the canonical record enriched with display names.
type IMessageStore interface {
	Store(ctx context.Context, draft domain.DraftMessage) (domain.StoredMessage, error)
}

// IRegistry tracks which live sessions belong to which identity.
type IRegistry interface {
	Add(identity string, s Session)
	Remove(identity string, s Session)
	SessionsFor(identity string) []Session
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
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
