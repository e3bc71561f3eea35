package bridge

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dexbrowser/dex-bridge/internal/logging"
	"github.com/dexbrowser/dex-bridge/internal/shared/id"
	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// Conn is the write side of a registered extension connection. The
// implementation must serialize concurrent WriteCommand calls.
type Conn interface {
	WriteCommand(cmd *types.Command) error
	Close() error
}

// connState is the registry's record of one live extension connection.
// Owned exclusively by the Registry; destroyed on socket close or eviction.
type connState struct {
	id        id.ConnectionID
	conn      Conn
	tabs      map[int]types.Tab
	activeTab *int
	lastSeen  time.Time
}

// Registry tracks live extension connections and the tabs each one has
// reported. It also holds the process-wide default connection pointer used
// when a call names no tab.
type Registry struct {
	mu          sync.RWMutex
	conns       map[id.ConnectionID]*connState
	byTab       map[int]id.ConnectionID
	defaultConn id.ConnectionID
	correlator  *Correlator
	logger      *logging.Logger
}

// NewRegistry creates an empty connection registry. Unregistering a
// connection cancels its pending entries through the correlator.
func NewRegistry(correlator *Correlator, logger *logging.Logger) *Registry {
	return &Registry{
		conns:      make(map[id.ConnectionID]*connState),
		byTab:      make(map[int]id.ConnectionID),
		correlator: correlator,
		logger:     logger.Component("registry"),
	}
}

// Register adds a connection with its initial tab snapshot and makes it the
// default target. Returns the assigned connection id.
func (r *Registry) Register(conn Conn, tabs []types.Tab) id.ConnectionID {
	connID := id.NewConnectionID()

	state := &connState{
		id:       connID,
		conn:     conn,
		tabs:     make(map[int]types.Tab, len(tabs)),
		lastSeen: time.Now(),
	}

	r.mu.Lock()
	r.conns[connID] = state
	r.applyTabsLocked(state, tabs)
	// Most recent registration becomes the default target.
	r.defaultConn = connID
	r.mu.Unlock()

	r.logger.Info("extension connection registered",
		zap.String("connection_id", connID.String()),
		zap.Int("tabs", len(tabs)))
	return connID
}

// Unregister removes a connection, drops its tab index entries, moves the
// default pointer if needed, and cancels every pending command addressed to
// it so callers are never left waiting on a dead link.
func (r *Registry) Unregister(connID id.ConnectionID) {
	r.mu.Lock()
	state, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
		for tabID, owner := range r.byTab {
			if owner == connID {
				delete(r.byTab, tabID)
			}
		}
		if r.defaultConn == connID {
			r.defaultConn = ""
			for other := range r.conns {
				r.defaultConn = other
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	state.conn.Close()
	r.correlator.CancelAll(connID, ErrConnectionLost)

	r.logger.Info("extension connection unregistered",
		zap.String("connection_id", connID.String()))
}

// ResolveTarget returns the connection addressed by tabID, or the default
// connection when tabID is nil. Never blocks.
func (r *Registry) ResolveTarget(tabID *int) (id.ConnectionID, Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tabID != nil {
		connID, ok := r.byTab[*tabID]
		if !ok {
			return "", nil, ErrUnknownTab
		}
		return connID, r.conns[connID].conn, nil
	}

	if r.defaultConn == "" {
		return "", nil, ErrNoActiveConnection
	}
	state, ok := r.conns[r.defaultConn]
	if !ok {
		return "", nil, ErrNoActiveConnection
	}
	return state.id, state.conn, nil
}

// UpdateTabs replaces a connection's cached tab snapshot. The extension is
// the source of truth; the cache only serves fast lookups.
func (r *Registry) UpdateTabs(connID id.ConnectionID, tabs []types.Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.conns[connID]
	if !ok {
		return
	}

	// Drop index entries for tabs this connection no longer reports.
	for tabID, owner := range r.byTab {
		if owner == connID {
			delete(r.byTab, tabID)
		}
	}
	state.tabs = make(map[int]types.Tab, len(tabs))
	state.activeTab = nil
	r.applyTabsLocked(state, tabs)
	state.lastSeen = time.Now()
}

// SetActiveTab records a tab activation and promotes the reporting
// connection to the process-wide default target.
func (r *Registry) SetActiveTab(connID id.ConnectionID, tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.conns[connID]
	if !ok {
		return
	}

	tab := tabID
	state.activeTab = &tab
	if existing, ok := state.tabs[tabID]; ok {
		existing.Active = true
		state.tabs[tabID] = existing
	}
	r.byTab[tabID] = connID
	r.defaultConn = connID
	state.lastSeen = time.Now()
}

// Touch refreshes a connection's last-activity timestamp.
func (r *Registry) Touch(connID id.ConnectionID) {
	r.mu.Lock()
	if state, ok := r.conns[connID]; ok {
		state.lastSeen = time.Now()
	}
	r.mu.Unlock()
}

// Tabs returns the cached tab snapshot across all connections.
func (r *Registry) Tabs() []types.Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tabs []types.Tab
	for _, state := range r.conns {
		for _, tab := range state.tabs {
			tabs = append(tabs, tab)
		}
	}
	return tabs
}

// CloseAll closes every connection and unregisters them. Used during
// graceful shutdown, after the correlator has been drained.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	states := make([]*connState, 0, len(r.conns))
	for _, state := range r.conns {
		states = append(states, state)
	}
	r.conns = make(map[id.ConnectionID]*connState)
	r.byTab = make(map[int]id.ConnectionID)
	r.defaultConn = ""
	r.mu.Unlock()

	for _, state := range states {
		state.conn.Close()
	}
}

// Stats returns registry statistics for the health endpoint.
func (r *Registry) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var totalTabs int
	lastSeen := make(map[string]time.Time, len(r.conns))
	for _, state := range r.conns {
		totalTabs += len(state.tabs)
		lastSeen[state.id.String()] = state.lastSeen
	}

	return map[string]interface{}{
		"connections": len(r.conns),
		"tabs":        totalTabs,
		"default":     r.defaultConn.String(),
		"last_seen":   lastSeen,
	}
}

// applyTabsLocked merges a tab snapshot into state and the tab index.
// Requires r.mu held. On a tab id collision across connections the most
// recent reporter wins.
func (r *Registry) applyTabsLocked(state *connState, tabs []types.Tab) {
	for _, tab := range tabs {
		state.tabs[tab.ID] = tab
		r.byTab[tab.ID] = state.id
		if tab.Active {
			tabID := tab.ID
			state.activeTab = &tabID
		}
	}
}
