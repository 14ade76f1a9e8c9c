package botui

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/nkaliyev/tengebot/internal/logger"
	"github.com/nkaliyev/tengebot/internal/telegram"
)

// UpdateHandler processes one update.
type UpdateHandler func(ctx context.Context, upd telegram.Update)

// Dispatcher fans updates out to per-chat lanes: updates within one chat
// are handled strictly in order, while different chats proceed
// concurrently. It uses Go channels for distribution and is safe for
// concurrent use. Lanes are never reaped; a personal bot sees a handful
// of chats over its lifetime.
type Dispatcher struct {
	handler UpdateHandler
	buffer  int

	mu      sync.Mutex
	lanes   map[int64]chan telegram.Update
	ctx     context.Context
	started bool
	closed  bool

	closeChan chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. bufferSize determines how many
// updates one chat can queue before Dispatch blocks.
func NewDispatcher(handler UpdateHandler, bufferSize int) *Dispatcher {
	return &Dispatcher{
		handler:   handler,
		buffer:    bufferSize,
		lanes:     make(map[int64]chan telegram.Update),
		closeChan: make(chan struct{}),
	}
}

// Start records the run context new lanes inherit. Must be called before
// the first Dispatch.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("dispatcher is closed")
	}
	d.ctx = ctx
	d.started = true
	return nil
}

// Dispatch routes an update to its chat's lane, creating the lane on first
// contact. Blocks when the lane is full, giving slow chats backpressure
// instead of unbounded growth.
func (d *Dispatcher) Dispatch(upd telegram.Update) error {
	chatID := upd.ChatID()
	if chatID == 0 {
		return fmt.Errorf("update %d has no chat", upd.UpdateID)
	}

	d.mu.Lock()
	if !d.started || d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is not running")
	}
	lane, ok := d.lanes[chatID]
	if !ok {
		lane = make(chan telegram.Update, d.buffer)
		d.lanes[chatID] = lane
		d.wg.Add(1)
		go d.worker(d.ctx, lane)
	}
	ctx := d.ctx
	d.mu.Unlock()

	select {
	case lane <- upd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.closeChan:
		return fmt.Errorf("dispatcher is closed")
	}
}

// worker drains one chat's lane.
func (d *Dispatcher) worker(ctx context.Context, lane chan telegram.Update) {
	defer d.wg.Done()

	for {
		select {
		case <-d.closeChan:
			return
		case upd := <-lane:
			d.handle(ctx, upd)
		}
	}
}

// handle runs the handler with panic recovery, so one bad update cannot
// take down its chat's lane.
func (d *Dispatcher) handle(ctx context.Context, upd telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			log := logger.FromContext(ctx)
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Int64("update_id", upd.UpdateID).
				Msg("Update handler panicked")
		}
	}()

	d.handler(ctx, upd)
}

// Stop closes every lane and waits for in-flight handlers to finish,
// bounded by ctx. Updates still queued in lanes are dropped.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeChan)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
