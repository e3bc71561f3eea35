package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the tool layer. Callers discriminate with
// errors.Is / errors.As; none are retried by the bridge itself.
var (
	// ErrUnknownTab means no registered connection has reported the tab.
	ErrUnknownTab = errors.New("unknown tab")

	// ErrNoActiveConnection means no extension is connected.
	ErrNoActiveConnection = errors.New("no active connection")

	// ErrTimeout means the command's deadline fired before a response.
	ErrTimeout = errors.New("command timed out")

	// ErrConnectionLost means the target connection closed while the
	// command was outstanding (or the frame write failed).
	ErrConnectionLost = errors.New("connection lost")

	// ErrShuttingDown means the bridge is draining for shutdown.
	ErrShuttingDown = errors.New("bridge shutting down")

	// ErrProtocolViolation means the extension sent a malformed frame.
	ErrProtocolViolation = errors.New("protocol violation")
)

// RemoteError is a failure reported by the extension in a Response frame.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("extension error %s: %s", e.Code, e.Message)
}
