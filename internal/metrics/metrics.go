// Package metrics exposes Prometheus collectors for the access engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for AccessAttempts.
const (
	OutcomeGranted  = "granted"
	OutcomeDenied   = "denied"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	AccessAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securevault_access_attempts_total",
		Help: "Access attempts by outcome.",
	}, []string{"outcome"})

	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "securevault_uploads_total",
		Help: "Files uploaded and secured.",
	})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "securevault_audit_write_failures_total",
		Help: "Audit log appends that failed and were swallowed.",
	})
)
