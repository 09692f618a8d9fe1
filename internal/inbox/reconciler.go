package inbox

import (
	"context"
	"log/slog"

	"hongdating/internal/middleware"
	"hongdating/internal/notifications"
)

// Loader reads a user's current rooms and pending requests.
type Loader interface {
	LoadInbox(ctx context.Context, userID uint) (*Snapshot, error)
}

// Sink receives encoded frames, typically a websocket client.
type Sink interface {
	TrySend(data []byte) bool
}

// Reconciler keeps one user's State current and mirrors every change to a
// sink. Subscribe before calling Load so no event falls between the read
// and the subscription; events already reflected in the load are dropped
// by version.
type Reconciler struct {
	userID uint
	loader Loader
	sink   Sink
	state  *State
}

// NewReconciler creates a Reconciler for userID.
func NewReconciler(userID uint, loader Loader, sink Sink) *Reconciler {
	return &Reconciler{userID: userID, loader: loader, sink: sink, state: NewState()}
}

// State exposes the reconciled state.
func (r *Reconciler) State() *State { return r.state }

// Load builds the initial state and sends it as an inbox_snapshot frame.
func (r *Reconciler) Load(ctx context.Context) error {
	snap, err := r.loader.LoadInbox(ctx, r.userID)
	if err != nil {
		return err
	}
	r.state.Load(snap.Rooms, snap.PendingRequests)
	return r.sendSnapshot()
}

func (r *Reconciler) sendSnapshot() error {
	ev, err := notifications.NewEvent(notifications.EventInboxSnapshot, r.state.Snapshot())
	if err != nil {
		return err
	}
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	r.sink.TrySend(data)
	return nil
}

// Handle applies one frame and forwards it when it changed the state.
func (r *Reconciler) Handle(ctx context.Context, data []byte) {
	ev, err := notifications.DecodeEvent(data)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "inbox: undecodable event",
			slog.Uint64("user_id", uint64(r.userID)), slog.String("error", err.Error()))
		return
	}
	changed, err := r.state.Apply(ev)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "inbox: event rejected",
			slog.Uint64("user_id", uint64(r.userID)),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()))
		return
	}
	if changed {
		r.sink.TrySend(data)
	}
}

// Run applies events until ctx is done or events is closed.
func (r *Reconciler) Run(ctx context.Context, events <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(ctx, data)
		}
	}
}
