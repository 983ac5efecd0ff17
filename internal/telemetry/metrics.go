/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts handled HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_frame_api_requests_total",
		Help: "Total HTTP requests handled, by method, endpoint and status.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes request latency in seconds.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_frame_api_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_frame_api_active_connections",
		Help: "In-flight HTTP requests.",
	})

	// PhotosStored gauges the number of indexed photos.
	PhotosStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_frame_photos_stored",
		Help: "Photos currently in the index.",
	})

	// PullOutcomes counts device pull results by engine outcome.
	PullOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_frame_pull_outcomes_total",
		Help: "Device pull results by rotation outcome.",
	}, []string{"outcome"})

	// BatteryPercentage gauges the last battery level the device reported.
	BatteryPercentage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_frame_battery_percentage",
		Help: "Last battery percentage reported by the device.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
