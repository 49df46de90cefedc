// File: internal/coordinator/coordinator.go

// Package coordinator routes tagged commands between the surfaces of a run
// (CLI, browser session, background workers) and keeps each surface's view
// of run state current through progress broadcasts.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// eventBuffer is the per-subscriber channel depth. A subscriber that falls
// this far behind starts losing events rather than blocking publishers.
const eventBuffer = 64

// Handler executes one command and returns its result payload.
type Handler func(ctx context.Context, cmd schemas.Command) (any, error)

// KV is the persistent key-value surface the coordinator exposes through
// GET_VALUE and SET_VALUE commands.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Coordinator owns the command router, the event broadcast fan-out, and the
// per-run state replicas.
type Coordinator struct {
	mu       sync.RWMutex
	handlers map[schemas.CommandType]Handler

	subMu sync.Mutex
	subs  map[int]chan schemas.Event
	next  int

	states  *StateStore
	kv      KV
	logger  *zap.Logger
	dropped int
}

// New builds a Coordinator. kv may be nil, in which case GET_VALUE and
// SET_VALUE commands fail with an explanatory error.
func New(kv KV, staleAfter time.Duration, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		handlers: make(map[schemas.CommandType]Handler),
		subs:     make(map[int]chan schemas.Event),
		states:   NewStateStore(staleAfter),
		kv:       kv,
		logger:   logger.Named("Coordinator"),
	}
	c.registerBuiltins()
	return c
}

// States returns the coordinator's run-state replica store.
func (c *Coordinator) States() *StateStore { return c.states }

// Handle registers a handler for a command type, replacing any previous one.
func (c *Coordinator) Handle(t schemas.CommandType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = h
}

// Dispatch routes a command to its handler and wraps the outcome in a Reply.
// Unknown command types produce an error Reply, never a panic or a dropped
// message.
func (c *Coordinator) Dispatch(ctx context.Context, cmd schemas.Command) schemas.Reply {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	c.mu.RLock()
	h, ok := c.handlers[cmd.Type]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn("Rejected command of unknown type.", zap.String("type", string(cmd.Type)))
		return schemas.Reply{
			CommandID: cmd.ID,
			OK:        false,
			Error:     fmt.Sprintf("unknown command type %q", cmd.Type),
		}
	}

	result, err := h(ctx, cmd)
	if err != nil {
		c.logger.Error("Command handler failed.",
			zap.String("type", string(cmd.Type)), zap.Error(err))
		return schemas.Reply{CommandID: cmd.ID, OK: false, Error: err.Error()}
	}
	return schemas.Reply{CommandID: cmd.ID, OK: true, Result: result}
}

// Subscribe returns a channel of broadcast events and a cancel function that
// releases the subscription. Callers must invoke cancel when done.
func (c *Coordinator) Subscribe() (<-chan schemas.Event, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.next
	c.next++
	ch := make(chan schemas.Event, eventBuffer)
	c.subs[id] = ch

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans an event out to every subscriber without blocking. Events to
// a full subscriber are dropped and counted.
func (c *Coordinator) Publish(evt schemas.Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- evt:
		default:
			c.dropped++
		}
	}
}

// Dropped reports how many events were discarded because a subscriber's
// buffer was full.
func (c *Coordinator) Dropped() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.dropped
}

// Progress applies a progress update to the state replicas and broadcasts it
// to every subscriber.
func (c *Coordinator) Progress(update schemas.ProgressUpdate) {
	snapshot := c.states.Apply(update)
	c.Publish(schemas.Event{
		Type:     schemas.EventProgress,
		RunID:    update.RunID,
		Progress: &update,
		At:       time.Now(),
	})
	c.Publish(schemas.Event{
		Type:  schemas.EventStateChanged,
		RunID: update.RunID,
		State: &snapshot,
		At:    time.Now(),
	})
}

// Finish broadcasts a terminal event for a run and marks its replica
// completed or failed.
func (c *Coordinator) Finish(runID string, runErr error) {
	evt := schemas.Event{Type: schemas.EventRunFinished, RunID: runID, At: time.Now()}
	phase := schemas.PhaseCompleted
	if runErr != nil {
		evt.Type = schemas.EventRunFailed
		evt.Error = runErr.Error()
		phase = schemas.PhaseFailed
	}
	c.states.SetPhase(runID, phase)
	c.Publish(evt)
}

// registerBuiltins wires the key-value and state-query commands every
// deployment gets for free.
func (c *Coordinator) registerBuiltins() {
	c.Handle(schemas.CommandGetValue, func(ctx context.Context, cmd schemas.Command) (any, error) {
		if c.kv == nil {
			return nil, fmt.Errorf("no key-value store configured")
		}
		var params schemas.KVParams
		if err := cmd.DecodePayload(&params); err != nil {
			return nil, fmt.Errorf("decoding key-value params: %w", err)
		}
		value, ok, err := c.kv.Get(ctx, params.Key)
		if err != nil {
			return nil, fmt.Errorf("reading key %q: %w", params.Key, err)
		}
		return map[string]any{"key": params.Key, "value": value, "found": ok}, nil
	})

	c.Handle(schemas.CommandSetValue, func(ctx context.Context, cmd schemas.Command) (any, error) {
		if c.kv == nil {
			return nil, fmt.Errorf("no key-value store configured")
		}
		var params schemas.KVParams
		if err := cmd.DecodePayload(&params); err != nil {
			return nil, fmt.Errorf("decoding key-value params: %w", err)
		}
		if err := c.kv.Set(ctx, params.Key, params.Value); err != nil {
			return nil, fmt.Errorf("writing key %q: %w", params.Key, err)
		}
		return map[string]any{"key": params.Key}, nil
	})

	c.Handle(schemas.CommandGetState, func(ctx context.Context, cmd schemas.Command) (any, error) {
		return c.states.Snapshot(), nil
	})
}
