package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
)

// PresenceWorker is the single consumer of the registry's membership-change
// queue. One goroutine draining one ordered queue is what gives every peer
// the broadcasts in the order the changes occurred; there is no ordering
// guarantee between different peers and none is needed.
type PresenceWorker struct {
	log     *slog.Logger
	updates <-chan contract.PresenceSnapshot
}

func NewPresenceWorker(log *slog.Logger, updates <-chan contract.PresenceSnapshot) *PresenceWorker {
	return &PresenceWorker{log: log, updates: updates}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping presence worker")
			return ctx.Err()
		case snapshot, ok := <-w.updates:
			if !ok {
				return nil
			}
			w.broadcast(ctx, snapshot)
		}
	}
}

// broadcast pushes the online set to every connection of the snapshot. A peer
// that disconnected mid-broadcast fails alone; the rest of the batch still
// gets the update.
func (w *PresenceWorker) broadcast(ctx context.Context, snapshot contract.PresenceSnapshot) {
	evt := event.PresenceChanged{Online: snapshot.Online}
	for _, sink := range snapshot.Sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Debug("Presence push skipped for one peer", "error", err)
		}
	}
}
