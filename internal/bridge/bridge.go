package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dexbrowser/dex-bridge/internal/infrastructure/monitoring"
	"github.com/dexbrowser/dex-bridge/internal/logging"
	"github.com/dexbrowser/dex-bridge/internal/shared/id"
	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// Bridge is the call surface used by tool handlers. It resolves the target
// connection, correlates the command with its eventual response, and blocks
// the caller (not the read loop) until an outcome arrives. Safe for
// arbitrary concurrent callers, including concurrent calls to the same tab.
type Bridge struct {
	registry       *Registry
	correlator     *Correlator
	logger         *logging.Logger
	metrics        *monitoring.Metrics
	defaultTimeout time.Duration
	closed         atomic.Bool
}

// New creates a bridge façade over the given registry and correlator.
func New(registry *Registry, correlator *Correlator, logger *logging.Logger, defaultTimeout time.Duration) *Bridge {
	return &Bridge{
		registry:       registry,
		correlator:     correlator,
		logger:         logger.Component("bridge"),
		defaultTimeout: defaultTimeout,
	}
}

// WithMetrics attaches a metrics collector.
func (b *Bridge) WithMetrics(m *monitoring.Metrics) *Bridge {
	b.metrics = m
	return b
}

// Call sends op to the connection owning tabID (or the default connection
// when tabID is nil) and waits up to timeout for the correlated response.
// A zero timeout uses the bridge default.
func (b *Bridge) Call(ctx context.Context, op string, tabID *int, args map[string]interface{}, timeout time.Duration) (json.RawMessage, error) {
	if b.closed.Load() {
		return nil, ErrShuttingDown
	}
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	connID, conn, err := b.registry.ResolveTarget(tabID)
	if err != nil {
		return nil, err
	}

	corrID, done := b.correlator.Allocate(connID, timeout)
	start := time.Now()

	cmd := &types.Command{
		ID:    corrID.String(),
		Op:    op,
		TabID: tabID,
		Args:  args,
	}

	if err := conn.WriteCommand(cmd); err != nil {
		// A write failure means the link is dead; tear the connection down
		// through the same path as a read error. Unregister cancels our own
		// entry (along with any others) with ErrConnectionLost.
		b.logger.Warn("command write failed, dropping connection",
			zap.String("connection_id", connID.String()),
			zap.String("op", op),
			zap.Error(err))
		b.registry.Unregister(connID)
		// Unregister cancels entries registered to connID, but if the
		// connection vanished between resolve and allocate our entry may
		// not have been covered. Resolving again is a harmless no-op when
		// it was.
		b.correlator.Resolve(corrID, Outcome{Err: ErrConnectionLost})
	}

	select {
	case out := <-done:
		status := "success"
		if out.Err != nil {
			status = errStatus(out.Err)
		}
		if b.metrics != nil {
			b.metrics.RecordCommand(op, status, time.Since(start))
		}
		if out.Err != nil {
			return nil, out.Err
		}
		return out.Result, nil

	case <-ctx.Done():
		// Caller gave up; remove the entry so a late response is dropped
		// instead of leaking.
		b.correlator.Resolve(corrID, Outcome{Err: ctx.Err()})
		<-done
		if b.metrics != nil {
			b.metrics.RecordCommand(op, "cancelled", time.Since(start))
		}
		return nil, ctx.Err()
	}
}

// HandleResponse routes a response frame from a connection's read loop into
// the correlation table. Returns false if the response matched nothing.
func (b *Bridge) HandleResponse(resp *types.Response) bool {
	out := Outcome{}
	if resp.OK {
		out.Result = resp.Result
	} else {
		code, message := "unknown", "extension reported failure"
		if resp.Error != nil {
			code, message = resp.Error.Code, resp.Error.Message
		}
		out.Err = &RemoteError{Code: code, Message: message}
	}
	return b.correlator.Resolve(id.CorrelationID(resp.ID), out)
}

// Pending returns the number of commands awaiting a response.
func (b *Bridge) Pending() int {
	return b.correlator.Pending()
}

// Shutdown drains the bridge: no new calls are accepted, every pending
// entry resolves with ErrShuttingDown, and all connections are closed.
func (b *Bridge) Shutdown() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.correlator.Drain(ErrShuttingDown)
	b.registry.CloseAll()
	b.logger.Info("bridge drained")
}

// errStatus maps an outcome error to a metrics label.
func errStatus(err error) string {
	var remote *RemoteError
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, ErrShuttingDown):
		return "shutting_down"
	case errors.As(err, &remote):
		return "remote_error"
	default:
		return "error"
	}
}
