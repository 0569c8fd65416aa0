package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetmon/internal/fleet"
	"fleetmon/internal/health"
	"fleetmon/internal/model"
	"fleetmon/internal/store"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	agg := fleet.NewAggregator(st, health.DefaultThresholds(), 24*time.Hour, 10*time.Second, 0)
	return NewServer(":0", st, agg, testAPIKey), st
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rr, req)
	return rr
}

func webhookHeaders() map[string]string {
	return map[string]string{"X-API-Key": testAPIKey}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func metricItem(system, metricType, name string, value float64) map[string]any {
	return map[string]any{
		"system_id":   system,
		"metric_type": metricType,
		"metric_name": name,
		"value":       value,
	}
}

func pushPayload(system string, metrics []map[string]any, alerts []map[string]any) map[string]any {
	return map[string]any{
		"system":  map[string]any{"id": system, "name": system + " NAS", "client_name": "Acme"},
		"metrics": metrics,
		"alerts":  alerts,
	}
}

func TestWebhookRequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t)
	payload := pushPayload("nas1", nil, nil)

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/webhook/metrics", payload,
		map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/webhook/metrics", payload, webhookHeaders())
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookEmptyKeyDisablesAuth(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	agg := fleet.NewAggregator(st, health.DefaultThresholds(), 24*time.Hour, 10*time.Second, 0)
	srv := NewServer(":0", st, agg, "")

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1", nil, nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookPartialRejection(t *testing.T) {
	srv, _ := newTestServer(t)

	metrics := []map[string]any{
		metricItem("nas1", "disk", "ada0_temperature", 38),
		metricItem("nas1", "disk", "ada0_smart_status", 1),
		{"system_id": "nas1", "metric_type": "disk", "metric_name": "ada1_temperature"}, // no value
		{"system_id": "nas1", "metric_type": "disk", "value": 5},                        // no name
	}
	alerts := []map[string]any{
		{"system_id": "nas1", "severity": "critical", "message": "Pool tank degraded"},
		{"system_id": "nas1", "severity": "warning"}, // no message
	}

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1", metrics, alerts), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[map[string]any](t, rr)
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 2, resp["metrics_received"])
	assert.EqualValues(t, 2, resp["metrics_rejected"])
	assert.EqualValues(t, 1, resp["alerts_received"])
	assert.EqualValues(t, 1, resp["alerts_rejected"])
}

func TestWebhookMetricMetadataStored(t *testing.T) {
	srv, _ := newTestServer(t)

	// Metadata is an arbitrary JSON object, not just string pairs.
	item := metricItem("nas1", "disk", "ada0_temperature", 38)
	item["unit"] = "C"
	item["metadata"] = map[string]any{"model": "WD Red", "rpm": 5400, "ssd": false}

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics",
		pushPayload("nas1", []map[string]any{item}, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]any](t, rr)
	assert.EqualValues(t, 1, resp["metrics_received"])
	assert.EqualValues(t, 0, resp["metrics_rejected"])

	rr = doJSON(t, srv, http.MethodGet, "/systems/nas1/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	events := decode[[]model.MetricEvent](t, rr)
	require.Len(t, events, 1)
	assert.Equal(t, "C", events[0].Unit)
	assert.Equal(t, "WD Red", events[0].Metadata["model"])
	assert.EqualValues(t, 5400, events[0].Metadata["rpm"])
	assert.Equal(t, false, events[0].Metadata["ssd"])
}

func TestWebhookRejectsUnknownSeverity(t *testing.T) {
	srv, _ := newTestServer(t)

	alerts := []map[string]any{
		{"system_id": "nas1", "severity": "critical", "message": "Pool tank degraded"},
		{"system_id": "nas1", "severity": "bogus", "message": "who knows"},
	}
	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics",
		pushPayload("nas1", nil, alerts), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[map[string]any](t, rr)
	assert.EqualValues(t, 1, resp["alerts_received"])
	assert.EqualValues(t, 1, resp["alerts_rejected"])

	// Only the well-formed alert was stored.
	stored := decode[[]model.Alert](t, doJSON(t, srv, http.MethodGet, "/alerts", nil, nil))
	require.Len(t, stored, 1)
	assert.Equal(t, model.SeverityCritical, stored[0].Severity)
}

func TestWebhookRejectsPayloadWithoutSystem(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics",
		map[string]any{"metrics": []map[string]any{}}, webhookHeaders())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookRegistersSystem(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1", nil, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/systems", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	systems := decode[[]model.System](t, rr)
	require.Len(t, systems, 1)
	assert.Equal(t, "nas1", systems[0].ID)
	assert.Equal(t, "Acme", systems[0].ClientName)
}

func TestSystemMetricsNewestFirst(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, v := range []float64{36, 37, 38} {
		require.NoError(t, st.InsertMetric(ctx, model.MetricEvent{
			SystemID: "nas1", Timestamp: now.Add(time.Duration(i-3) * time.Hour),
			MetricType: "disk", MetricName: "ada0_temperature", Value: v,
		}))
	}
	require.NoError(t, st.InsertMetric(ctx, model.MetricEvent{
		SystemID: "nas1", Timestamp: now, MetricType: "cpu",
		MetricName: "cpu_usage", Value: 12,
	}))

	rr := doJSON(t, srv, http.MethodGet, "/systems/nas1/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	events := decode[[]model.MetricEvent](t, rr)
	require.Len(t, events, 4)
	assert.Equal(t, "cpu_usage", events[0].MetricName)
	assert.Equal(t, 38.0, events[1].Value)
	assert.Equal(t, 36.0, events[3].Value)

	rr = doJSON(t, srv, http.MethodGet, "/systems/nas1/metrics?metric_type=disk", nil, nil)
	events = decode[[]model.MetricEvent](t, rr)
	assert.Len(t, events, 3)

	// hours is clamped, never an error.
	rr = doJSON(t, srv, http.MethodGet, "/systems/nas1/metrics?hours=0", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, srv, http.MethodGet, "/systems/nas1/metrics?hours=999999", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSystemDisksResolvedViews(t *testing.T) {
	srv, _ := newTestServer(t)

	metrics := []map[string]any{
		metricItem("nas1", "disk", "ada0_temperature", 38),
		metricItem("nas1", "disk", "ada0_smart_status", 1),
		metricItem("nas1", "disk", "nvme0n1_p2_temperature", 42),
	}
	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1", metrics, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/systems/nas1/disks", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	disks := decode[[]map[string]any](t, rr)
	require.Len(t, disks, 2)

	assert.Equal(t, "ada0", disks[0]["disk_id"])
	metricsMap := disks[0]["metrics"].(map[string]any)
	temp := metricsMap["temperature"].(map[string]any)
	assert.EqualValues(t, 38, temp["value"])
	assert.NotEmpty(t, disks[0]["history"])

	// Entity IDs containing underscores survive resolution.
	assert.Equal(t, "nvme0n1_p2", disks[1]["disk_id"])
}

func TestAllDisksGroupedBySystem(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1",
		[]map[string]any{metricItem("nas1", "disk", "ada0_temperature", 38)}, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas2",
		[]map[string]any{metricItem("nas2", "disk", "sda_temperature", 41)}, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/disks", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	groups := decode[[]map[string]any](t, rr)
	require.Len(t, groups, 2)

	assert.Equal(t, "nas1", groups[0]["system_id"])
	assert.Equal(t, "nas1 NAS", groups[0]["system_name"])
	assert.Equal(t, "Acme", groups[0]["client_name"])
	disks := groups[0]["disks"].(map[string]any)
	require.Contains(t, disks, "ada0")
}

func TestDisksSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	metrics := []map[string]any{
		metricItem("nas1", "disk", "ada0_temperature", 38),
		metricItem("nas1", "disk", "ada0_smart_status", 1),
		metricItem("nas1", "disk", "ada1_temperature", 30),
		metricItem("nas1", "disk", "ada1_smart_status", 0),
	}
	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1", metrics, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/disks/summary", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	s := decode[model.DisksSummary](t, rr)
	assert.Equal(t, 2, s.TotalDisks)
	assert.Equal(t, 1, s.HealthyDisks)
	assert.Equal(t, 1, s.Critical)
	assert.Equal(t, 1, s.SmartFailures)
}

func TestPoolWithOnlyCapacityIsNotHealthy(t *testing.T) {
	srv, _ := newTestServer(t)

	// Capacity data alone says nothing about pool state: the pool must
	// not be counted healthy.
	metrics := []map[string]any{
		metricItem("nas1", "pool", "tank_used", 100),
		metricItem("nas1", "pool", "tank_total", 1000),
	}
	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1", metrics, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/pools/summary", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	s := decode[model.PoolsSummary](t, rr)
	assert.Equal(t, 1, s.TotalPools)
	assert.Equal(t, 0, s.HealthyPools)
	assert.Equal(t, 0, s.DegradedPools)
}

func TestIngestionRefreshesSummary(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1",
		[]map[string]any{
			metricItem("nas1", "pool", "tank_state", 1),
			metricItem("nas1", "pool", "tank_used", 100),
			metricItem("nas1", "pool", "tank_total", 1000),
		}, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/pools/summary", nil, nil)
	s := decode[model.PoolsSummary](t, rr)
	assert.Equal(t, 1, s.HealthyPools)

	// The pool degrades on the next push; the summary must follow.
	rr = doJSON(t, srv, http.MethodPost, "/webhook/metrics", pushPayload("nas1",
		[]map[string]any{metricItem("nas1", "pool", "tank_state", 0)}, nil), webhookHeaders())
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/pools/summary", nil, nil)
	s = decode[model.PoolsSummary](t, rr)
	assert.Equal(t, 0, s.HealthyPools)
	assert.Equal(t, 1, s.DegradedPools)
}

func TestAlertEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.UpsertSystem(ctx, model.SystemInfo{ID: "nas1", Name: "Primary"}, now))
	id, err := st.InsertAlert(ctx, model.AlertData{
		SystemID: "nas1", Severity: model.SeverityCritical, Message: "Pool tank degraded",
	}, now)
	require.NoError(t, err)

	rr := doJSON(t, srv, http.MethodGet, "/alerts", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	alerts := decode[[]model.Alert](t, rr)
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Acknowledged)

	rr = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/alerts/%d/acknowledge", id), nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/alerts?acknowledged=false", nil, nil)
	alerts = decode[[]model.Alert](t, rr)
	assert.Empty(t, alerts)

	rr = doJSON(t, srv, http.MethodPost, "/alerts/9999/acknowledge", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/alerts?acknowledged=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateTicket(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.UpsertSystem(ctx, model.SystemInfo{ID: "nas1", Name: "Primary"}, now))
	id, err := st.InsertAlert(ctx, model.AlertData{
		SystemID: "nas1", Severity: model.SeverityWarning, Message: "Disk ada0 hot",
	}, now)
	require.NoError(t, err)

	rr := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/alerts/%d/create-ticket", id),
		map[string]string{"psa": "autotask"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]any](t, rr)
	assert.Equal(t, fmt.Sprintf("AUTOTASK-%d-001", id), resp["ticket_id"])

	alerts := decode[[]model.Alert](t, doJSON(t, srv, http.MethodGet, "/alerts", nil, nil))
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Acknowledged)
	assert.Equal(t, fmt.Sprintf("AUTOTASK-%d-001", id), alerts[0].TicketID)

	rr = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/alerts/%d/create-ticket", id),
		map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/alerts/9999/create-ticket",
		map[string]string{"psa": "halo"}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]string](t, rr)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "fleetmon", resp["service"])
}
