// Package health classifies resolved entity views. Every classifier is a
// pure function: it never errors, and missing attributes degrade to an
// explicit unknown status, which renders distinctly from healthy.
package health

import "time"

// Status is a classification verdict.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"

	// Pool primary statuses beyond the shared set.
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"

	// Replication effective statuses.
	StatusFailed  Status = "failed"
	StatusStale   Status = "stale"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
)

// Well-known attribute value encodings from the collector.
const (
	SmartFailed = 0 // smart_status: 0=FAILED, 1=PASSED

	PoolStateDegraded = 0 // state: 0=degraded, 1=online
	PoolStateOnline   = 1

	ResilverInProgress = 1 // resilver_status: 0=none, 1=in_progress

	ReplicationFailed  = 0 // status: 0=failed, 1=running, 2=success
	ReplicationRunning = 1
	ReplicationSuccess = 2
)

// Thresholds holds every classification knob.
type Thresholds struct {
	SystemStale          time.Duration
	DiskTempWarning      float64
	DiskTempCritical     float64
	PoolCapacityWarning  float64
	PoolCapacityCritical float64
	ScrubOverdue         time.Duration
	ReplicationStale     time.Duration
}

// DefaultThresholds returns the default classification thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SystemStale:          60 * time.Minute,
		DiskTempWarning:      45,
		DiskTempCritical:     55,
		PoolCapacityWarning:  0.80,
		PoolCapacityCritical: 0.90,
		ScrubOverdue:         7 * 24 * time.Hour,
		ReplicationStale:     24 * time.Hour,
	}
}
