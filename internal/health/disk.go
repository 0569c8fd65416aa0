package health

import (
	"fleetmon/internal/model"
	"fleetmon/internal/resolve"
)

// DiskHealth is the classification verdict for one disk.
type DiskHealth struct {
	Status             Status   `json:"status"`
	SmartFailed        bool     `json:"smart_failed"`
	Temperature        *float64 `json:"temperature,omitempty"`
	PowerOnHours       *float64 `json:"power_on_hours,omitempty"`
	ReallocatedSectors *float64 `json:"reallocated_sectors,omitempty"`
	PendingSectors     *float64 `json:"pending_sectors,omitempty"`
	ReadErrors         *float64 `json:"read_errors,omitempty"`
}

// ClassifyDisk maps a resolved disk view to a health verdict.
// A SMART failure is critical no matter what the temperature reads; a disk
// with neither smart_status nor temperature resolved is unknown, never
// silently healthy.
func ClassifyDisk(view *model.EntityView, th Thresholds) DiskHealth {
	h := DiskHealth{
		Temperature:        view.Attribute(resolve.AttrTemperature),
		PowerOnHours:       view.Attribute(resolve.AttrPowerHours),
		ReallocatedSectors: view.Attribute(resolve.AttrReallocatedSectors),
		PendingSectors:     view.Attribute(resolve.AttrPendingSectors),
		ReadErrors:         view.Attribute(resolve.AttrReadErrors),
	}

	smart := view.Attribute(resolve.AttrSmartStatus)

	switch {
	case smart != nil && *smart == SmartFailed:
		h.SmartFailed = true
		h.Status = StatusCritical
	case h.Temperature != nil && *h.Temperature >= th.DiskTempCritical:
		h.Status = StatusCritical
	case h.Temperature != nil && *h.Temperature >= th.DiskTempWarning,
		h.ReallocatedSectors != nil && *h.ReallocatedSectors > 0,
		h.PendingSectors != nil && *h.PendingSectors > 0:
		h.Status = StatusWarning
	case smart == nil && h.Temperature == nil:
		h.Status = StatusUnknown
	default:
		h.Status = StatusHealthy
	}

	return h
}
