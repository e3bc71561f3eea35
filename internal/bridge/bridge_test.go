package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexbrowser/dex-bridge/internal/logging"
	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// fakeConn records written commands and supports injected write failures.
type fakeConn struct {
	mu       sync.Mutex
	written  []*types.Command
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteCommand(cmd *types.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, cmd)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) commands() []*types.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Command, len(f.written))
	copy(out, f.written)
	return out
}

func newTestBridge(t *testing.T) (*Bridge, *Registry, *Correlator) {
	t.Helper()
	correlator := NewCorrelator(logging.NewNop())
	registry := NewRegistry(correlator, logging.NewNop())
	b := New(registry, correlator, logging.NewNop(), 5*time.Second)
	return b, registry, correlator
}

// respond answers every command written to conn with the given builder,
// simulating the extension side.
func respond(t *testing.T, b *Bridge, conn *fakeConn, build func(cmd *types.Command) *types.Response) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		answered := make(map[string]bool)
		for time.Now().Before(deadline) {
			for _, cmd := range conn.commands() {
				if !answered[cmd.ID] {
					answered[cmd.ID] = true
					b.HandleResponse(build(cmd))
				}
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
}

func TestCallRoundTrip(t *testing.T) {
	b, registry, _ := newTestBridge(t)

	conn := &fakeConn{}
	registry.Register(conn, tabs(1))

	go func() {
		// Wait for the command to be written, then answer it.
		for len(conn.commands()) == 0 {
			time.Sleep(time.Millisecond)
		}
		cmd := conn.commands()[0]
		assert.Equal(t, "navigate", cmd.Op)
		assert.Equal(t, "https://example.com", cmd.Args["url"])
		b.HandleResponse(&types.Response{
			ID:     cmd.ID,
			OK:     true,
			Result: json.RawMessage(`{"status":"complete"}`),
		})
	}()

	result, err := b.Call(context.Background(), "navigate", nil,
		map[string]interface{}{"url": "https://example.com"}, time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"complete"}`, string(result))
}

func TestCallUnknownTabSendsNothing(t *testing.T) {
	b, registry, _ := newTestBridge(t)

	conn := &fakeConn{}
	registry.Register(conn, tabs(1))

	tab := 7
	_, err := b.Call(context.Background(), "click_element", &tab,
		map[string]interface{}{"elementId": "e1"}, 5*time.Second)

	assert.ErrorIs(t, err, ErrUnknownTab)
	assert.Empty(t, conn.commands(), "no frame may be sent for an unknown tab")
}

func TestCallNoActiveConnection(t *testing.T) {
	b, _, _ := newTestBridge(t)

	_, err := b.Call(context.Background(), "screenshot", nil, nil, time.Second)
	assert.ErrorIs(t, err, ErrNoActiveConnection)
}

func TestCallTimeout(t *testing.T) {
	b, registry, correlator := newTestBridge(t)

	registry.Register(&fakeConn{}, tabs(3))

	tab := 3
	start := time.Now()
	_, err := b.Call(context.Background(), "screenshot", &tab, nil, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 0, correlator.Pending(), "timed-out entry must be gone from the table")
}

func TestCallRemoteError(t *testing.T) {
	b, registry, _ := newTestBridge(t)

	conn := &fakeConn{}
	registry.Register(conn, tabs(1))

	respond(t, b, conn, func(cmd *types.Command) *types.Response {
		return &types.Response{
			ID: cmd.ID,
			OK: false,
			Error: &types.ErrorInfo{
				Code:    "element_not_found",
				Message: "no element with id e1",
			},
		}
	})

	_, err := b.Call(context.Background(), "click_element", nil,
		map[string]interface{}{"elementId": "e1"}, time.Second)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "element_not_found", remote.Code)
	assert.Equal(t, "no element with id e1", remote.Message)
}

func TestCallWriteFailureIsConnectionLost(t *testing.T) {
	b, registry, correlator := newTestBridge(t)

	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	registry.Register(conn, tabs(1))

	_, err := b.Call(context.Background(), "grab_dom", nil, nil, time.Second)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, 0, correlator.Pending())
	assert.True(t, conn.isClosed(), "failed writer must be torn down")
}

func TestCallAfterShutdown(t *testing.T) {
	b, registry, _ := newTestBridge(t)
	registry.Register(&fakeConn{}, tabs(1))

	b.Shutdown()

	_, err := b.Call(context.Background(), "get_tabs", nil, nil, time.Second)
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestShutdownDrainsWaiters(t *testing.T) {
	b, registry, _ := newTestBridge(t)
	registry.Register(&fakeConn{}, tabs(1))

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Call(context.Background(), "screenshot", nil, nil, time.Minute)
		errCh <- err
	}()

	// Let the call reach its await point.
	time.Sleep(50 * time.Millisecond)
	b.Shutdown()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrShuttingDown)
	case <-time.After(time.Second):
		t.Fatal("waiter was not drained on shutdown")
	}
}

func TestOutOfOrderResponses(t *testing.T) {
	b, registry, _ := newTestBridge(t)

	conn := &fakeConn{}
	registry.Register(conn, tabs(5))

	tab := 5
	var wg sync.WaitGroup
	results := make([]json.RawMessage, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = b.Call(context.Background(), "grab_dom", &tab,
				map[string]interface{}{"seq": i}, 5*time.Second)
		}(i)
	}

	// Wait until both commands are on the wire, then answer B before A.
	deadline := time.Now().Add(2 * time.Second)
	for len(conn.commands()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("commands never arrived")
		}
		time.Sleep(time.Millisecond)
	}

	cmds := conn.commands()
	for i := len(cmds) - 1; i >= 0; i-- {
		seq := cmds[i].Args["seq"]
		payload, _ := json.Marshal(map[string]interface{}{"echo": seq})
		b.HandleResponse(&types.Response{ID: cmds[i].ID, OK: true, Result: payload})
	}
	wg.Wait()

	// Each caller got its own result despite reversed arrival order.
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(results[i], &decoded))
		assert.EqualValues(t, i, decoded["echo"])
	}
}

func TestCallerContextCancellation(t *testing.T) {
	b, registry, correlator := newTestBridge(t)
	registry.Register(&fakeConn{}, tabs(1))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := b.Call(ctx, "screenshot", nil, nil, time.Minute)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled call never returned")
	}
	assert.Equal(t, 0, correlator.Pending())
}
