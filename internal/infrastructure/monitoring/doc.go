/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the bridge,
tracking HTTP requests, extension connections, command correlation, and tool
invocations.

# Features

- HTTP request metrics (latency, throughput)
- Extension connection gauge and lifetime counter
- Pending command gauge and round-trip duration histograms
- Dropped response and protocol violation counters
- Tool invocation metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record command outcomes
	metrics.RecordCommand("navigate", "success", duration)

	// Time tool invocations
	timer := monitoring.NewTimer(metrics, "browser.grab_dom")
	// ... perform invocation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
