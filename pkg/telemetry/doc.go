// Package telemetry provides the observability collaborators for the
// lightflow engine: the process-wide output sink and environment record,
// structured logging via zerolog, Prometheus metrics, and an in-process
// event stream for run and task lifecycle notifications.
package telemetry
