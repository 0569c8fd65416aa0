package health

import (
	"time"

	"fleetmon/internal/model"
	"fleetmon/internal/resolve"
)

// ReplicationHealth is the classification verdict for one replication task.
type ReplicationHealth struct {
	Status        Status     `json:"status"`
	Stale         bool       `json:"stale"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	HoursSinceRun *float64   `json:"hours_since_run,omitempty"`
}

// ClassifyReplication maps a resolved replication task view to an
// effective status with precedence failed > stale > running > success.
// Staleness only demotes an otherwise-successful task; failed and running
// are never overridden.
func ClassifyReplication(view *model.EntityView, th Thresholds, now time.Time) ReplicationHealth {
	var h ReplicationHealth

	if lastRun := view.Attribute(resolve.AttrLastRun); lastRun != nil {
		t := time.Unix(int64(*lastRun), 0).UTC()
		h.LastRun = &t
		hours := now.Sub(t).Hours()
		h.HoursSinceRun = &hours
		h.Stale = now.Sub(t) > th.ReplicationStale
	}

	status := view.Attribute(resolve.AttrStatus)
	switch {
	case status != nil && *status == ReplicationFailed:
		h.Status = StatusFailed
	case status != nil && *status == ReplicationRunning:
		h.Status = StatusRunning
	case h.Stale && (status == nil || *status == ReplicationSuccess):
		h.Status = StatusStale
	case status != nil && *status == ReplicationSuccess:
		h.Status = StatusSuccess
	default:
		h.Status = StatusUnknown
	}

	return h
}
