// Package types defines the shared data model for the bridge: the wire
// frames exchanged with the browser extension, tab snapshots, and the
// tool catalogue types used by the service registry.
//
// Wire schema (extension <-> bridge, JSON text frames):
//
//	Command:  { id, op, tabId?, args }
//	Response: { id, ok, result?, error?: { code, message } }
//	Event:    { event, data }  (no id)
//
// Responses are matched to commands purely by id; ordering is not
// significant. Payload shapes inside result are opaque to the bridge.
package types
