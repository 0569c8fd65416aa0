package resolve

import (
	"strings"

	"fleetmon/internal/model"
)

// Domain selects an attribute vocabulary.
type Domain string

const (
	DomainDisk        Domain = "disk"
	DomainPool        Domain = "pool"
	DomainReplication Domain = "replication"
)

// Attribute names shared by classifiers and the resolver.
const (
	AttrTemperature        = "temperature"
	AttrSmartStatus        = "smart_status"
	AttrPowerHours         = "power_hours"
	AttrReallocatedSectors = "reallocated_sectors"
	AttrPendingSectors     = "pending_sectors"
	AttrReadErrors         = "read_errors"

	AttrUsed             = "used"
	AttrTotal            = "total"
	AttrState            = "state"
	AttrScrubStatus      = "scrub_status"
	AttrScrubLast        = "scrub_last"
	AttrScrubDuration    = "scrub_duration"
	AttrScrubErrors      = "scrub_errors"
	AttrChecksumErrors   = "checksum_errors"
	AttrResilverStatus   = "resilver_status"
	AttrResilverProgress = "resilver_progress"

	AttrStatus   = "status"
	AttrLastRun  = "last_run"
	AttrBytes    = "bytes"
	AttrDuration = "duration"
)

// vocabularies enumerates the valid attribute suffixes per domain, longest
// first. Entity IDs may themselves contain underscores, so suffix matching
// against this fixed vocabulary is the only safe way to split a metric
// name; splitting on the last underscore would shear "smart_status" into
// ("ada0_smart", "status").
var vocabularies = map[Domain][]string{
	DomainDisk: {
		AttrReallocatedSectors,
		AttrPendingSectors,
		AttrSmartStatus,
		AttrPowerHours,
		AttrReadErrors,
		AttrTemperature,
	},
	DomainPool: {
		AttrResilverProgress,
		AttrChecksumErrors,
		AttrResilverStatus,
		AttrScrubDuration,
		AttrScrubStatus,
		AttrScrubErrors,
		AttrScrubLast,
		AttrState,
		AttrTotal,
		AttrUsed,
	},
	DomainReplication: {
		AttrLastRun,
		AttrDuration,
		AttrStatus,
		AttrBytes,
	},
}

// metricTypes maps each domain to the raw metric_type values it consumes.
var metricTypes = map[Domain][]string{
	DomainDisk:        {model.MetricTypeDisk},
	DomainPool:        {model.MetricTypePool, model.MetricTypePoolHealth},
	DomainReplication: {model.MetricTypeReplication},
}

// Vocabulary returns the attribute suffixes for a domain, longest first.
func Vocabulary(d Domain) []string {
	return vocabularies[d]
}

// MetricTypes returns the metric_type values a domain resolves from.
func MetricTypes(d Domain) []string {
	return metricTypes[d]
}

// Split derives (entityID, attribute) from a raw metric name using the
// domain's vocabulary. ok is false when no suffix matches or the entity ID
// would be empty; such events are unclassifiable for this domain and stay
// raw-only.
func Split(d Domain, metricName string) (entityID, attribute string, ok bool) {
	for _, suffix := range vocabularies[d] {
		id, found := strings.CutSuffix(metricName, "_"+suffix)
		if found && id != "" {
			return id, suffix, true
		}
	}
	return "", "", false
}
