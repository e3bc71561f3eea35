// Package bridge implements the browser-control RPC core: the connection
// registry, the correlation table, and the call façade that tool handlers
// use to drive the extension.
//
// A call flows: façade resolves the target connection via the registry →
// allocates a correlation entry with a deadline → writes the command frame
// over the connection's serialized write path → suspends on the entry's
// outcome channel. The WebSocket read loop (package ws) feeds responses
// back through HandleResponse; out-of-order delivery is expected and
// harmless because matching is purely by correlation id.
//
// Invariants:
//   - At most one live entry per correlation id; resolution is at-most-once.
//   - Unregistering a connection cancels all of its pending entries with
//     ErrConnectionLost, leaving none behind in the table.
//   - Late responses for expired ids are dropped with a log line, never
//     delivered twice.
//
// Locks guard only map mutation, never a network write or an await.
package bridge
