package health

import (
	"time"

	"fleetmon/internal/model"
	"fleetmon/internal/resolve"
)

// PoolHealth is the classification verdict for one storage pool. Flags are
// independent and can be set simultaneously; Status is a convenience
// precedence (degraded > error > warning > healthy) that consumers are free
// to ignore in favor of the flags.
type PoolHealth struct {
	Status           Status   `json:"status"`
	Degraded         bool     `json:"degraded"`
	ErrorsDetected   bool     `json:"errors_detected"`
	NeedsScrub       bool     `json:"needs_scrub"`
	CapacityWarning  bool     `json:"capacity_warning"`
	CapacityCritical bool     `json:"capacity_critical"`
	ResilverActive   bool     `json:"resilver_active"`
	ResilverProgress *float64 `json:"resilver_progress,omitempty"`
	UsedGB           *float64 `json:"used_gb,omitempty"`
	TotalGB          *float64 `json:"total_gb,omitempty"`
	CapacityRatio    *float64 `json:"capacity_ratio,omitempty"`
}

// ClassifyPool maps a resolved pool view to a health verdict.
func ClassifyPool(view *model.EntityView, th Thresholds, now time.Time) PoolHealth {
	h := PoolHealth{
		UsedGB:  view.Attribute(resolve.AttrUsed),
		TotalGB: view.Attribute(resolve.AttrTotal),
	}

	state := view.Attribute(resolve.AttrState)
	h.Degraded = state != nil && *state == PoolStateDegraded

	scrubErrors := view.Attribute(resolve.AttrScrubErrors)
	checksumErrors := view.Attribute(resolve.AttrChecksumErrors)
	h.ErrorsDetected = (scrubErrors != nil && *scrubErrors > 0) ||
		(checksumErrors != nil && *checksumErrors > 0)

	if scrubLast := view.Attribute(resolve.AttrScrubLast); scrubLast != nil {
		last := time.Unix(int64(*scrubLast), 0)
		h.NeedsScrub = now.Sub(last) > th.ScrubOverdue
	}

	if h.UsedGB != nil && h.TotalGB != nil && *h.TotalGB > 0 {
		ratio := *h.UsedGB / *h.TotalGB
		h.CapacityRatio = &ratio
		h.CapacityWarning = ratio > th.PoolCapacityWarning
		h.CapacityCritical = ratio > th.PoolCapacityCritical
	}

	if rs := view.Attribute(resolve.AttrResilverStatus); rs != nil && *rs == ResilverInProgress {
		h.ResilverActive = true
		// resilver_progress is only meaningful while a resilver is active.
		h.ResilverProgress = view.Attribute(resolve.AttrResilverProgress)
	}

	switch {
	case h.Degraded:
		h.Status = StatusDegraded
	case h.ErrorsDetected:
		h.Status = StatusError
	case h.NeedsScrub, h.CapacityWarning, h.CapacityCritical:
		h.Status = StatusWarning
	case state != nil && *state == PoolStateOnline:
		h.Status = StatusHealthy
	default:
		// No state attribute resolved and no flag raised: health unknown,
		// not "online".
		h.Status = StatusUnknown
	}

	return h
}
