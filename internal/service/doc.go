// Package service provides the tool service registry.
//
// The registry maintains a catalog of tool providers and routes execution
// requests to them by namespaced tool ID (service.tool).
//
// Components:
//   - Registry: Central service catalog
//   - Provider: Interface for service implementations
//
// Features:
//   - Thread-safe service registration
//   - Category-based filtering
//   - Tool execution with context passing
//   - Service statistics for the health endpoint
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(browserProvider)
//	result, err := registry.Execute(ctx, "browser.navigate", params)
package service
