// Package model defines all shared domain types for fleetmon.
package model

import "time"

// Known metric types pushed by the collector. Unknown types are stored as
// opaque data and excluded from classification.
const (
	MetricTypePool        = "pool"
	MetricTypePoolHealth  = "pool_health"
	MetricTypeDisk        = "disk"
	MetricTypeCPU         = "cpu"
	MetricTypeMemory      = "memory"
	MetricTypeNetwork     = "network"
	MetricTypeReplication = "replication"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// System is a monitored fleet member, tracked by its stable external ID.
type System struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Hostname   string    `json:"hostname,omitempty"`
	Version    string    `json:"version,omitempty"`
	ClientName string    `json:"client_name,omitempty"`
	LastSeen   time.Time `json:"last_seen"`
}

// IsStale reports whether the system has not reported within threshold.
func (s System) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(s.LastSeen) > threshold
}

// SystemInfo is the system block of an ingestion payload.
type SystemInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Hostname   string `json:"hostname,omitempty"`
	Version    string `json:"version,omitempty"`
	ClientName string `json:"client_name,omitempty"`
}

// MetricEvent is one immutable time-series sample. Events are append-only;
// only the retention sweep ever removes them.
type MetricEvent struct {
	ID         int64          `json:"id,omitempty"`
	SystemID   string         `json:"system_id"`
	Timestamp  time.Time      `json:"timestamp"`
	MetricType string         `json:"metric_type"`
	MetricName string         `json:"metric_name"`
	Value      float64        `json:"value"`
	Unit       string         `json:"unit,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Alert is a collector-asserted alert event. Alerts are never deleted;
// acknowledgment and ticket creation are the only mutations.
type Alert struct {
	ID           int64     `json:"id"`
	SystemID     string    `json:"system_id"`
	SystemName   string    `json:"system_name,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Severity     string    `json:"severity"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
	TicketID     string    `json:"ticket_id,omitempty"`
}

// AlertData is the alert block of an ingestion payload.
type AlertData struct {
	SystemID string `json:"system_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// AttributeSnapshot is the most recent resolved value of one entity
// attribute within the lookback window.
type AttributeSnapshot struct {
	Value     float64        `json:"value"`
	Unit      string         `json:"unit,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EntityView is the resolved current state of one disk, pool, or
// replication task. Partial views (missing attributes) are expected;
// consumers must treat absent attributes as unknown, never as healthy.
type EntityView struct {
	EntityID    string                       `json:"entity_id"`
	SystemID    string                       `json:"system_id"`
	LastUpdated time.Time                    `json:"last_updated"`
	Attributes  map[string]AttributeSnapshot `json:"attributes"`
}

// Attribute returns the resolved value for attr, or nil when unresolved.
func (v *EntityView) Attribute(attr string) *float64 {
	snap, ok := v.Attributes[attr]
	if !ok {
		return nil
	}
	val := snap.Value
	return &val
}

// HottestDisk identifies the disk with the highest resolved temperature.
type HottestDisk struct {
	Disk        string  `json:"disk"`
	Temperature float64 `json:"temperature"`
	SystemID    string  `json:"system_id"`
}

// DisksSummary is the fleet-wide disk health rollup. TotalDisks may exceed
// the sum of the health buckets when some disks lack SMART data.
type DisksSummary struct {
	TotalDisks     int          `json:"total_disks"`
	HealthyDisks   int          `json:"healthy_disks"`
	Warnings       int          `json:"warnings"`
	Critical       int          `json:"critical"`
	SmartFailures  int          `json:"smart_failures"`
	AvgTemperature *float64     `json:"avg_temperature"`
	HottestDisk    *HottestDisk `json:"hottest_disk"`
}

// PoolsSummary is the fleet-wide pool health rollup. Capacities are stored
// in GB and reported in TB.
type PoolsSummary struct {
	TotalPools       int     `json:"total_pools"`
	HealthyPools     int     `json:"healthy_pools"`
	DegradedPools    int     `json:"degraded_pools"`
	NeedsScrub       int     `json:"needs_scrub"`
	ActiveResilvers  int     `json:"active_resilvers"`
	CapacityWarnings int     `json:"capacity_warnings"`
	TotalCapacityTB  float64 `json:"total_capacity_tb"`
	UsedCapacityTB   float64 `json:"used_capacity_tb"`
}

// OldestStale identifies the replication task that has gone longest
// without running.
type OldestStale struct {
	Task     string  `json:"task"`
	SystemID string  `json:"system_id"`
	HoursAgo float64 `json:"hours_ago"`
}

// ReplicationSummary is the fleet-wide replication health rollup.
type ReplicationSummary struct {
	TotalTasks   int          `json:"total_tasks"`
	HealthyTasks int          `json:"healthy_tasks"`
	FailedTasks  int          `json:"failed_tasks"`
	StaleTasks   int          `json:"stale_tasks"`
	LastSuccess  *time.Time   `json:"last_success"`
	OldestStale  *OldestStale `json:"oldest_stale"`
}

// AlertCounts buckets unacknowledged alerts by severity.
type AlertCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// DashboardSummary is the top-level fleet rollup.
type DashboardSummary struct {
	TotalSystems   int         `json:"total_systems"`
	HealthySystems int         `json:"healthy_systems"`
	StaleSystems   int         `json:"stale_systems"`
	Alerts         AlertCounts `json:"alerts"`
	TotalStorageTB float64     `json:"total_storage_tb"`
}
