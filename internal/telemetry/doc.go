// SPDX-License-Identifier: MPL-2.0

// Package telemetry delivers runtime selection events to logs, Prometheus
// metrics and an optional OTLP trace exporter.
package telemetry
