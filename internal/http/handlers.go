package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dexbrowser/dex-bridge/internal/bridge"
	"github.com/dexbrowser/dex-bridge/internal/infrastructure/monitoring"
	"github.com/dexbrowser/dex-bridge/internal/service"
	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	bridge   *bridge.Bridge
	registry *bridge.Registry
	services *service.Registry
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(b *bridge.Bridge, registry *bridge.Registry, services *service.Registry, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		bridge:   b,
		registry: registry,
		services: services,
		metrics:  metrics,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Dex Bridge (Go)",
		"version": "0.2.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"connections": h.registry.Stats(),
		"pending":     h.bridge.Pending(),
		"services":    h.services.Stats(),
	})
}

// ListTools lists all registered tool services
func (h *Handlers) ListTools(c *gin.Context) {
	categoryStr := c.Query("category")

	var category *types.Category
	if categoryStr != "" {
		cat := types.Category(categoryStr)
		category = &cat
	}

	services := h.services.List(category)
	stats := h.services.Stats()

	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"stats":    stats,
	})
}

// ExecuteTool executes a tool by namespaced ID
func (h *Handlers) ExecuteTool(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timer := monitoring.NewTimer(h.metrics, req.Tool)
	result, err := h.services.Execute(c.Request.Context(), req.Tool, req.Params)
	if err != nil {
		timer.Stop("error")
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if result.Success {
		timer.Stop("success")
	} else {
		timer.Stop("failure")
	}
	c.JSON(http.StatusOK, result)
}

// ListTabs returns the cached tab snapshot across all connections
func (h *Handlers) ListTabs(c *gin.Context) {
	tabs := h.registry.Tabs()
	c.JSON(http.StatusOK, gin.H{
		"tabs":  tabs,
		"count": len(tabs),
	})
}

// MetricsJSON returns current metric values as JSON
func (h *Handlers) MetricsJSON(c *gin.Context) {
	snapshot := h.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"total_requests":     snapshot.TotalRequests,
		"total_errors":       snapshot.TotalErrors,
		"active_connections": snapshot.ActiveConnections,
		"pending_requests":   snapshot.PendingRequests,
		"commands_issued":    snapshot.CommandsIssued,
		"dropped_responses":  snapshot.DroppedResponses,
		"uptime_seconds":     int64(time.Since(h.metrics.StartTime()).Seconds()),
	})
}
