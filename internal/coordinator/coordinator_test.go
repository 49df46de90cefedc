// File: internal/coordinator/coordinator_test.go
package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memKV is an in-memory KV for tests.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func newTestCoordinator(kv KV) *Coordinator {
	return New(kv, time.Minute, zap.NewNop())
}

func TestDispatchRoutesByType(t *testing.T) {
	c := newTestCoordinator(nil)
	c.Handle(schemas.CommandCollectFriends, func(ctx context.Context, cmd schemas.Command) (any, error) {
		return "collected", nil
	})

	reply := c.Dispatch(context.Background(), schemas.Command{
		ID:   "cmd-1",
		Type: schemas.CommandCollectFriends,
	})

	assert.True(t, reply.OK)
	assert.Equal(t, "cmd-1", reply.CommandID)
	assert.Equal(t, "collected", reply.Result)
}

func TestDispatchUnknownTypeGetsErrorReply(t *testing.T) {
	c := newTestCoordinator(nil)

	reply := c.Dispatch(context.Background(), schemas.Command{ID: "cmd-2", Type: "MAKE_COFFEE"})

	assert.False(t, reply.OK)
	assert.Equal(t, "cmd-2", reply.CommandID)
	assert.Contains(t, reply.Error, "MAKE_COFFEE")
}

func TestDispatchHandlerErrorBecomesReplyError(t *testing.T) {
	c := newTestCoordinator(nil)
	c.Handle(schemas.CommandUnfriend, func(ctx context.Context, cmd schemas.Command) (any, error) {
		return nil, errors.New("not confirmed")
	})

	reply := c.Dispatch(context.Background(), schemas.Command{Type: schemas.CommandUnfriend})

	assert.False(t, reply.OK)
	assert.Equal(t, "not confirmed", reply.Error)
	assert.NotEmpty(t, reply.CommandID, "missing command IDs are filled in")
}

func TestKeyValueCommands(t *testing.T) {
	kv := newMemKV()
	c := newTestCoordinator(kv)
	ctx := context.Background()

	set := c.Dispatch(ctx, schemas.Command{
		Type:    schemas.CommandSetValue,
		Payload: schemas.KVParams{Key: "last_run", Value: "run-7"},
	})
	require.True(t, set.OK, set.Error)

	get := c.Dispatch(ctx, schemas.Command{
		Type:    schemas.CommandGetValue,
		Payload: map[string]any{"key": "last_run"},
	})
	require.True(t, get.OK, get.Error)

	result, ok := get.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-7", result["value"])
	assert.Equal(t, true, result["found"])

	miss := c.Dispatch(ctx, schemas.Command{
		Type:    schemas.CommandGetValue,
		Payload: schemas.KVParams{Key: "absent"},
	})
	require.True(t, miss.OK)
	assert.Equal(t, false, miss.Result.(map[string]any)["found"])
}

func TestKeyValueCommandsWithoutStore(t *testing.T) {
	c := newTestCoordinator(nil)

	reply := c.Dispatch(context.Background(), schemas.Command{
		Type:    schemas.CommandGetValue,
		Payload: schemas.KVParams{Key: "k"},
	})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "no key-value store")
}

func TestProgressUpdatesReplicaAndBroadcasts(t *testing.T) {
	c := newTestCoordinator(nil)

	events, cancel := c.Subscribe()
	defer cancel()

	c.Progress(schemas.ProgressUpdate{
		RunID:     "run-1",
		Phase:     schemas.PhaseRunning,
		Processed: 4,
		Total:     10,
		Message:   "working",
	})

	progress := <-events
	require.Equal(t, schemas.EventProgress, progress.Type)
	require.NotNil(t, progress.Progress)
	assert.Equal(t, 4, progress.Progress.Processed)

	state := <-events
	require.Equal(t, schemas.EventStateChanged, state.Type)
	require.NotNil(t, state.State)
	assert.Equal(t, schemas.PhaseRunning, state.State.Phase)

	snap, ok := c.States().Get("run-1")
	require.True(t, ok)
	assert.Equal(t, 4, snap.Processed)
	assert.Equal(t, 10, snap.Total)
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	c := newTestCoordinator(nil)

	a, cancelA := c.Subscribe()
	defer cancelA()
	b, cancelB := c.Subscribe()
	defer cancelB()

	c.Publish(schemas.Event{Type: schemas.EventRunFinished, RunID: "run-2"})

	assert.Equal(t, "run-2", (<-a).RunID)
	assert.Equal(t, "run-2", (<-b).RunID)
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	c := newTestCoordinator(nil)

	events, cancel := c.Subscribe()
	cancel()
	cancel() // cancelling twice is safe

	c.Publish(schemas.Event{Type: schemas.EventProgress})

	_, open := <-events
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	c := newTestCoordinator(nil)

	_, cancel := c.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < eventBuffer*2; i++ {
			c.Publish(schemas.Event{Type: schemas.EventProgress})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Everything beyond the buffer depth was dropped, not delivered late.
	assert.Equal(t, eventBuffer, c.Dropped())
}

func TestFinishMarksReplicaTerminal(t *testing.T) {
	c := newTestCoordinator(nil)

	c.Progress(schemas.ProgressUpdate{RunID: "run-3", Phase: schemas.PhaseRunning})
	c.Finish("run-3", nil)

	snap, ok := c.States().Get("run-3")
	require.True(t, ok)
	assert.Equal(t, schemas.PhaseCompleted, snap.Phase)

	c.Finish("run-4", errors.New("browser crashed"))
	snap, _ = c.States().Get("run-4")
	assert.Equal(t, schemas.PhaseFailed, snap.Phase)
}

func TestGetStateCommand(t *testing.T) {
	c := newTestCoordinator(nil)
	c.Progress(schemas.ProgressUpdate{RunID: "run-b", Phase: schemas.PhaseRunning})
	c.Progress(schemas.ProgressUpdate{RunID: "run-a", Phase: schemas.PhasePaused})

	reply := c.Dispatch(context.Background(), schemas.Command{Type: schemas.CommandGetState})
	require.True(t, reply.OK)

	snaps, ok := reply.Result.([]schemas.StateSnapshot)
	require.True(t, ok)
	require.Len(t, snaps, 2)
	assert.Equal(t, "run-a", snaps[0].RunID)
	assert.Equal(t, "run-b", snaps[1].RunID)
}

func TestStateStoreStaleness(t *testing.T) {
	s := NewStateStore(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	s.Apply(schemas.ProgressUpdate{RunID: "run-1", Phase: schemas.PhaseRunning})
	assert.False(t, s.Stale("run-1"))

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.True(t, s.Stale("run-1"))

	assert.False(t, s.Stale("never-seen"))

	off := NewStateStore(0)
	off.Apply(schemas.ProgressUpdate{RunID: "run-1"})
	assert.False(t, off.Stale("run-1"))
}
