package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetmon/internal/model"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		domain     Domain
		metricName string
		wantEntity string
		wantAttr   string
		wantOK     bool
	}{
		{"simple disk", DomainDisk, "ada0_temperature", "ada0", "temperature", true},
		{"multiword suffix", DomainDisk, "ada0_smart_status", "ada0", "smart_status", true},
		{"underscore in entity", DomainDisk, "nvme0n1_p2_temperature", "nvme0n1_p2", "temperature", true},
		{"entity containing suffix word", DomainDisk, "disk_status_temperature", "disk_status", "temperature", true},
		{"longest suffix wins", DomainDisk, "ada1_reallocated_sectors", "ada1", "reallocated_sectors", true},
		{"pending sectors", DomainDisk, "sdb_pending_sectors", "sdb", "pending_sectors", true},
		{"no matching suffix", DomainDisk, "ada0_write_errors", "", "", false},
		{"suffix only", DomainDisk, "temperature", "", "", false},
		{"bare separator plus suffix", DomainDisk, "_temperature", "", "", false},
		{"pool state", DomainPool, "tank_state", "tank", "state", true},
		{"pool resilver progress", DomainPool, "tank_resilver_progress", "tank", "resilver_progress", true},
		{"pool scrub last", DomainPool, "backup_pool_scrub_last", "backup_pool", "scrub_last", true},
		{"replication status", DomainReplication, "tank_to_offsite_status", "tank_to_offsite", "status", true},
		{"replication last run", DomainReplication, "nightly_last_run", "nightly", "last_run", true},
		{"wrong domain vocabulary", DomainReplication, "ada0_temperature", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity, attr, ok := Split(tt.domain, tt.metricName)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantEntity, entity)
			assert.Equal(t, tt.wantAttr, attr)
		})
	}
}

func event(system, metricName string, value float64, ts time.Time) model.MetricEvent {
	return model.MetricEvent{
		SystemID:   system,
		Timestamp:  ts,
		MetricType: model.MetricTypeDisk,
		MetricName: metricName,
		Value:      value,
	}
}

func TestResolveLatestWins(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []model.MetricEvent{
		event("nas1", "ada0_temperature", 38, t0),
		event("nas1", "ada0_temperature", 42, t0.Add(time.Hour)),
		event("nas1", "ada0_smart_status", 1, t0),
	}

	res := Resolve(DomainDisk, events)
	require.Len(t, res.Views, 1)

	view := res.Views[Key{SystemID: "nas1", EntityID: "ada0"}]
	require.NotNil(t, view)
	assert.Equal(t, 42.0, view.Attributes["temperature"].Value)
	assert.Equal(t, 1.0, view.Attributes["smart_status"].Value)
	assert.Equal(t, t0.Add(time.Hour), view.LastUpdated)
}

func TestResolveOutOfOrderIngestion(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Events arrive in id order, but the later-ingested event carries an
	// older timestamp. The newer timestamp must still win.
	events := []model.MetricEvent{
		event("nas1", "ada0_temperature", 42, t0.Add(time.Hour)),
		event("nas1", "ada0_temperature", 38, t0),
	}

	res := Resolve(DomainDisk, events)
	view := res.Views[Key{SystemID: "nas1", EntityID: "ada0"}]
	require.NotNil(t, view)
	assert.Equal(t, 42.0, view.Attributes["temperature"].Value)
}

func TestResolveTimestampTie(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Equal timestamps: the later-ingested event (later in input order)
	// wins deterministically.
	events := []model.MetricEvent{
		event("nas1", "ada0_temperature", 38, t0),
		event("nas1", "ada0_temperature", 41, t0),
	}

	res := Resolve(DomainDisk, events)
	view := res.Views[Key{SystemID: "nas1", EntityID: "ada0"}]
	require.NotNil(t, view)
	assert.Equal(t, 41.0, view.Attributes["temperature"].Value)
}

func TestResolveUnclassifiedCounted(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []model.MetricEvent{
		event("nas1", "ada0_temperature", 38, t0),
		event("nas1", "cpu_usage", 12, t0),
		event("nas1", "uptime", 86400, t0),
	}

	res := Resolve(DomainDisk, events)
	assert.Equal(t, 2, res.Unclassified)
	assert.Len(t, res.Views, 1)
}

func TestResolveNoPhantomEntities(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Nothing resolvable: no view may be emitted, not even an empty one.
	events := []model.MetricEvent{
		event("nas1", "garbage_metric", 1, t0),
		event("nas1", "_temperature", 2, t0),
	}

	res := Resolve(DomainDisk, events)
	assert.Empty(t, res.Views)
	assert.Equal(t, 2, res.Unclassified)
}

func TestResolveSeparatesSystems(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Same entity ID on two systems stays two entities.
	events := []model.MetricEvent{
		event("nas1", "ada0_temperature", 38, t0),
		event("nas2", "ada0_temperature", 51, t0),
	}

	res := Resolve(DomainDisk, events)
	require.Len(t, res.Views, 2)
	assert.Equal(t, 38.0, res.Views[Key{"nas1", "ada0"}].Attributes["temperature"].Value)
	assert.Equal(t, 51.0, res.Views[Key{"nas2", "ada0"}].Attributes["temperature"].Value)
}

func TestSortedViews(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []model.MetricEvent{
		event("nas2", "ada0_temperature", 40, t0),
		event("nas1", "sdb_temperature", 39, t0),
		event("nas1", "ada0_temperature", 38, t0),
	}

	views := Resolve(DomainDisk, events).SortedViews()
	require.Len(t, views, 3)
	assert.Equal(t, "nas1", views[0].SystemID)
	assert.Equal(t, "ada0", views[0].EntityID)
	assert.Equal(t, "sdb", views[1].EntityID)
	assert.Equal(t, "nas2", views[2].SystemID)
}
