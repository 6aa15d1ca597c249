package webhook

import (
	"context"
	"errors"
	"sync"

	"github.com/MyCarrier-DevOps/git-observer/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// ErrDispatcherClosed is returned by Dispatch after Shutdown has started.
var ErrDispatcherClosed = errors.New("dispatcher is shutting down")

// Dispatcher runs each event through the handler on its own goroutine and
// keeps track of them so shutdown can wait for in-flight deployments.
type Dispatcher struct {
	handler domain.EventHandler
	logger  Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Events inherit the values of parent but
// not its cancellation; only Shutdown aborts them.
func NewDispatcher(parent context.Context, handler domain.EventHandler, log Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Dispatcher{handler: handler, logger: log, ctx: ctx, cancel: cancel}
}

// Dispatch starts processing event in the background.
func (d *Dispatcher) Dispatch(event domain.InboundEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.process(event)
	}()
	return nil
}

func (d *Dispatcher) process(event domain.InboundEvent) {
	ctx := logger.ContextWithFields(d.ctx, map[string]any{
		"delivery_id": event.DeliveryID,
		"event":       event.EventType,
	})

	outcome := d.handler.HandleEvent(ctx, event)

	fields := map[string]interface{}{"state": string(outcome.State)}
	if outcome.Plan != nil {
		fields["plan"] = outcome.Plan.Kind.String()
	}
	switch outcome.State {
	case domain.StateFailed:
		d.logger.Error(ctx, "event failed", outcome.Err, fields)
	case domain.StateRejected:
		d.logger.Debug(ctx, "event rejected", fields)
	default:
		d.logger.Debug(ctx, "event finished", fields)
	}
}

// Shutdown stops accepting events and waits for in-flight ones. When ctx ends
// first, running events are cancelled and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
