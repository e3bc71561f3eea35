// Package server wires the bridge together: configuration, logging,
// metrics, the correlation core, the websocket listener, the tool
// providers, and the Gin REST router. It owns startup order and the
// graceful shutdown sequence (drain pending commands, close extension
// connections, stop the HTTP listener).
package server
