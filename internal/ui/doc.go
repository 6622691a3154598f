// Package ui provides helpers for formatting human-readable console output.
//
// Command events are translated into concise messages while detailed telemetry
// continues to flow through structured loggers. Reconciliation reports render as
// borderless tables with a one-line summary.
package ui
