// Package http provides HTTP handlers for the bridge's REST API.
//
// This package implements all HTTP endpoints using the Gin framework:
// health checks, tool listing and execution, tab inspection, and the
// JSON metrics view.
//
// Endpoints:
//   - Health: / and /health
//   - Tools: /tools, /tools/execute
//   - Tabs: /tabs
//   - Metrics: /metrics/json (Prometheus exposition lives at /metrics)
//
// Example Usage:
//
//	handlers := http.NewHandlers(bridge, registry, services, metrics)
//	router.GET("/health", handlers.Health)
//	router.POST("/tools/execute", handlers.ExecuteTool)
package http
