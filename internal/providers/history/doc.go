// Package history answers browsing history and interest queries from the
// external history store. It is an HTTP collaborator independent of the
// extension websocket; its tools work even when no extension is connected.
package history
