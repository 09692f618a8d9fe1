package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hongdating/internal/middleware"
	"hongdating/internal/observability"
)

const (
	queueSize   = 256
	sendTimeout = 10 * time.Second
)

// TokenStore resolves and prunes device tokens.
type TokenStore interface {
	Tokens(ctx context.Context, userID uint) ([]string, error)
	DeleteTokens(ctx context.Context, tokens []string) error
}

type job struct {
	userID uint
	n      Notification
}

// Dispatcher sends notifications off the request path through a bounded
// queue. A full queue drops the notification.
type Dispatcher struct {
	sender Sender
	tokens TokenStore
	queue  chan job

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	cancel    context.CancelFunc
}

// NewDispatcher creates a Dispatcher. Call Start before Notify.
func NewDispatcher(sender Sender, tokens TokenStore) *Dispatcher {
	if sender == nil {
		sender = NoopSender{}
	}
	return &Dispatcher{
		sender: sender,
		tokens: tokens,
		queue:  make(chan job, queueSize),
		done:   make(chan struct{}),
	}
}

// Start runs the worker until ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		go d.run(ctx)
	})
}

// Stop signals the worker and waits for it to exit.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		if d.cancel == nil {
			close(d.done)
			return
		}
		d.cancel()
		<-d.done
	})
}

// Notify queues n for userID. It never blocks.
func (d *Dispatcher) Notify(userID uint, n Notification) {
	select {
	case d.queue <- job{userID: userID, n: n}:
	default:
		observability.PushTotal.WithLabelValues("dropped").Inc()
		middleware.Logger.Warn("push queue full, dropping notification", slog.Uint64("user_id", uint64(userID)))
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.queue:
			d.deliver(ctx, j)
		}
	}
}

func (d *Dispatcher) deliver(parent context.Context, j job) {
	ctx, cancel := context.WithTimeout(parent, sendTimeout)
	defer cancel()

	tokens, err := d.tokens.Tokens(ctx, j.userID)
	if err != nil {
		observability.PushTotal.WithLabelValues("error").Inc()
		middleware.Logger.Error("push token lookup failed", slog.Uint64("user_id", uint64(j.userID)), slog.String("error", err.Error()))
		return
	}
	if len(tokens) == 0 {
		observability.PushTotal.WithLabelValues("no_device").Inc()
		return
	}

	res, err := d.sender.Send(ctx, tokens, j.n)
	if err != nil {
		observability.PushTotal.WithLabelValues("error").Inc()
		middleware.Logger.Warn("push send failed", slog.Uint64("user_id", uint64(j.userID)), slog.String("error", err.Error()))
		return
	}
	observability.PushTotal.WithLabelValues("sent").Add(float64(res.Sent))

	if len(res.InvalidTokens) > 0 {
		observability.PushTotal.WithLabelValues("invalid").Add(float64(len(res.InvalidTokens)))
		if err := d.tokens.DeleteTokens(ctx, res.InvalidTokens); err != nil {
			middleware.Logger.Warn("failed to prune push tokens", slog.String("error", err.Error()))
		}
	}
}
