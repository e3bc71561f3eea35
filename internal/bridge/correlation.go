package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dexbrowser/dex-bridge/internal/infrastructure/monitoring"
	"github.com/dexbrowser/dex-bridge/internal/logging"
	"github.com/dexbrowser/dex-bridge/internal/shared/id"
)

// Outcome is the terminal state of a pending command: a decoded result
// payload or an error, never both.
type Outcome struct {
	Result json.RawMessage
	Err    error
}

// pending is a single-resolution slot for one outstanding command. The done
// channel is buffered so resolution never blocks the listener's read loop.
type pending struct {
	connID   id.ConnectionID
	issued   time.Time
	deadline *time.Timer
	done     chan Outcome
}

// Correlator maps outstanding correlation ids to the callers awaiting them.
// Entries are created at send time and destroyed exactly once: by a matching
// response, a deadline expiry, or cancellation on connection loss.
type Correlator struct {
	mu      sync.Mutex
	entries map[id.CorrelationID]*pending
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewCorrelator creates an empty correlation table.
func NewCorrelator(logger *logging.Logger) *Correlator {
	return &Correlator{
		entries: make(map[id.CorrelationID]*pending),
		logger:  logger.Component("correlator"),
	}
}

// WithMetrics attaches a metrics collector.
func (c *Correlator) WithMetrics(m *monitoring.Metrics) *Correlator {
	c.metrics = m
	return c
}

// Allocate registers a new pending entry for a command addressed to connID
// and arms its deadline timer. The returned channel receives exactly one
// Outcome.
func (c *Correlator) Allocate(connID id.ConnectionID, timeout time.Duration) (id.CorrelationID, <-chan Outcome) {
	corrID := id.NewCorrelationID()

	entry := &pending{
		connID: connID,
		issued: time.Now(),
		done:   make(chan Outcome, 1),
	}
	entry.deadline = time.AfterFunc(timeout, func() {
		c.expire(corrID)
	})

	c.mu.Lock()
	c.entries[corrID] = entry
	pendingCount := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetPendingRequests(pendingCount)
	}

	return corrID, entry.done
}

// Resolve delivers an outcome to the entry's waiter and removes it. Returns
// false if the id is unknown or already resolved; such late responses are
// dropped with a log line and never crash the bridge.
func (c *Correlator) Resolve(corrID id.CorrelationID, out Outcome) bool {
	c.mu.Lock()
	entry, ok := c.entries[corrID]
	if ok {
		delete(c.entries, corrID)
	}
	pendingCount := len(c.entries)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("dropping response for unknown or expired correlation id",
			zap.String("correlation_id", corrID.String()))
		if c.metrics != nil {
			c.metrics.RecordDroppedResponse()
		}
		return false
	}

	entry.deadline.Stop()
	entry.done <- out

	if c.metrics != nil {
		c.metrics.SetPendingRequests(pendingCount)
	}
	return true
}

// CancelAll resolves every pending entry addressed to connID with err.
// Called when a connection is unregistered so no caller waits forever on
// a dead link.
func (c *Correlator) CancelAll(connID id.ConnectionID, err error) {
	c.mu.Lock()
	var cancelled []*pending
	for corrID, entry := range c.entries {
		if entry.connID == connID {
			delete(c.entries, corrID)
			cancelled = append(cancelled, entry)
		}
	}
	pendingCount := len(c.entries)
	c.mu.Unlock()

	for _, entry := range cancelled {
		entry.deadline.Stop()
		entry.done <- Outcome{Err: err}
	}

	if len(cancelled) > 0 {
		c.logger.Info("cancelled pending commands for connection",
			zap.String("connection_id", connID.String()),
			zap.Int("count", len(cancelled)),
			zap.Error(err))
	}
	if c.metrics != nil {
		c.metrics.SetPendingRequests(pendingCount)
	}
}

// Drain resolves every pending entry in the table with err. Used during
// graceful shutdown.
func (c *Correlator) Drain(err error) {
	c.mu.Lock()
	drained := make([]*pending, 0, len(c.entries))
	for corrID, entry := range c.entries {
		delete(c.entries, corrID)
		drained = append(drained, entry)
	}
	c.mu.Unlock()

	for _, entry := range drained {
		entry.deadline.Stop()
		entry.done <- Outcome{Err: err}
	}

	if c.metrics != nil {
		c.metrics.SetPendingRequests(0)
	}
}

// Pending returns the number of outstanding entries.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// expire fires when an entry's deadline elapses before a response arrived.
func (c *Correlator) expire(corrID id.CorrelationID) {
	c.mu.Lock()
	entry, ok := c.entries[corrID]
	if ok {
		delete(c.entries, corrID)
	}
	pendingCount := len(c.entries)
	c.mu.Unlock()

	if !ok {
		// Resolved in the window between timer fire and lock acquisition.
		return
	}

	entry.done <- Outcome{Err: ErrTimeout}

	c.logger.Warn("command deadline expired",
		zap.String("correlation_id", corrID.String()),
		zap.String("connection_id", entry.connID.String()),
		zap.Duration("waited", time.Since(entry.issued)))
	if c.metrics != nil {
		c.metrics.SetPendingRequests(pendingCount)
	}
}
