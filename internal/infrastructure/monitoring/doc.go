/*
Package monitoring provides metrics collection for the shell host.

# Overview

Prometheus collectors for the HTTP surface, the bridge protocol, the device
capabilities behind it (permissions, location, token storage) and the
hardware back signal. Each Metrics owns a registry, so tests can build as
many collectors as they like.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	metrics.RecordInbound("SAVE_TOKEN", "handled")

	timer := monitoring.NewTimer(metrics)
	// ... obtain a fix ...
	timer.StopLocation("success")

# Metrics Endpoint

	handler := promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})
	router.GET("/metrics", gin.WrapH(handler))
*/
package monitoring
