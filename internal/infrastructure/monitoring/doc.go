/*
Package monitoring provides Prometheus metrics for the bridge.

# Overview

Metrics live on a private registry created by NewMetrics. The type
satisfies the bridge's session Observer and the CAPTCHA solver's attempt
Recorder, so both components report through it without importing
Prometheus themselves.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	b := bridge.New(bus, logger, bridge.Options{Observer: metrics})

GetSnapshot returns plain counters for the JSON health endpoint.
*/
package monitoring
