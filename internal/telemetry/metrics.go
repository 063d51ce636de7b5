/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing
// for the production pipeline.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SegmentsProducedTotal counts delivery-ready segments per bitrate.
	SegmentsProducedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_segments_produced_total",
		Help: "Delivery-ready segments produced, labelled by bitrate.",
	}, []string{"bitrate"})

	// SegmentationFailuresTotal counts per-bitrate slicing failures.
	SegmentationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_segmentation_failures_total",
		Help: "Per-bitrate segmentation failures (isolated, non-fatal).",
	}, []string{"bitrate"})

	// MixFailuresTotal counts failed merges per strategy.
	MixFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_mix_failures_total",
		Help: "Failed audio merges, labelled by strategy.",
	}, []string{"strategy"})

	// StationTicksTotal counts orchestrator loop iterations.
	StationTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_station_ticks_total",
		Help: "Orchestrator ticks, labelled by station.",
	}, []string{"station"})

	// StationErrorsTotal counts orchestrator failures by stage.
	StationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_station_errors_total",
		Help: "Orchestrator errors, labelled by station and stage.",
	}, []string{"station", "stage"})

	// ScheduleRebuildsTotal counts day-schedule materializations.
	ScheduleRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_schedule_rebuilds_total",
		Help: "Stream schedule rebuilds, labelled by station.",
	}, []string{"station"})

	// SegmentQueueDepth tracks the per-station, per-bitrate buffer depth.
	SegmentQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skald_segment_queue_depth",
		Help: "Delivery buffer depth, labelled by station and bitrate.",
	}, []string{"station", "bitrate"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// HTTPRequestsTotal counts requests by endpoint, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_http_requests_total",
		Help: "HTTP requests, labelled by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})

	// HTTPRequestDuration observes request latency per endpoint.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_http_request_duration_seconds",
		Help:    "HTTP request latency, labelled by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
