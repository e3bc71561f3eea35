// Package ws implements the websocket transport listener for browser
// extension connections.
//
// Each accepted socket goes through a hello handshake (the first frame
// must be a hello event carrying the client's tab snapshot), then is
// registered with the connection registry and served by a read loop.
// Inbound response frames are routed to the correlation table; inbound
// event frames update the registry's cached tab state. Outbound command
// writes are serialized per connection so concurrent callers never
// interleave frames.
//
// A protocol violation closes only the offending connection, never the
// listener.
package ws
