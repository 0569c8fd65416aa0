package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"fleetmon/internal/model"
)

// webhookPayload is the envelope the collector pushes. Metric and alert
// lists are independent; either may be empty.
type webhookPayload struct {
	System  model.SystemInfo `json:"system"`
	Metrics []metricData     `json:"metrics"`
	Alerts  []alertData      `json:"alerts"`
}

type metricData struct {
	SystemID   string         `json:"system_id"`
	MetricType string         `json:"metric_type"`
	MetricName string         `json:"metric_name"`
	Value      *float64       `json:"value"`
	Unit       string         `json:"unit"`
	Metadata   map[string]any `json:"metadata"`
	Timestamp  *time.Time     `json:"timestamp"`
}

type alertData struct {
	SystemID string `json:"system_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (m *metricData) validate() bool {
	if m.SystemID == "" || m.MetricType == "" || m.MetricName == "" {
		return false
	}
	if m.Value == nil || math.IsNaN(*m.Value) || math.IsInf(*m.Value, 0) {
		return false
	}
	return true
}

func (a *alertData) validate() bool {
	if a.SystemID == "" || a.Message == "" {
		return false
	}
	// A severity outside the known set would be stored but never counted,
	// so it is rejected up front.
	switch a.Severity {
	case model.SeverityCritical, model.SeverityWarning, model.SeverityInfo:
		return true
	}
	return false
}

// @Summary Ingest metrics and alerts
// @Description Receives a metric push from the collector. Malformed items are rejected individually; the rest of the payload is still stored.
// @Accept json
// @Produce json
// @Param X-API-Key header string false "Webhook API key"
// @Param payload body webhookPayload true "Metric payload"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /webhook/metrics [post]
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.System.ID == "" || payload.System.Name == "" {
		writeError(w, http.StatusBadRequest, "system.id and system.name are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	if err := s.store.UpsertSystem(ctx, payload.System, now); err != nil {
		slog.Error("upserting system", "system", payload.System.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var metricsStored, metricsRejected int
	for _, m := range payload.Metrics {
		if !m.validate() {
			metricsRejected++
			slog.Debug("rejecting metric event",
				"system", m.SystemID, "metric", m.MetricName)
			continue
		}
		ts := now
		if m.Timestamp != nil {
			ts = m.Timestamp.UTC()
		}
		ev := model.MetricEvent{
			SystemID:   m.SystemID,
			Timestamp:  ts,
			MetricType: m.MetricType,
			MetricName: m.MetricName,
			Value:      *m.Value,
			Unit:       m.Unit,
			Metadata:   m.Metadata,
		}
		if err := s.store.InsertMetric(ctx, ev); err != nil {
			slog.Error("inserting metric event",
				"system", m.SystemID, "metric", m.MetricName, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		metricsStored++
	}

	var alertsStored, alertsRejected int
	for _, a := range payload.Alerts {
		if !a.validate() {
			alertsRejected++
			continue
		}
		alert := model.AlertData{
			SystemID: a.SystemID,
			Severity: a.Severity,
			Message:  a.Message,
		}
		if _, err := s.store.InsertAlert(ctx, alert, now); err != nil {
			slog.Error("inserting alert", "system", a.SystemID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		alertsStored++
	}

	// Summaries computed before this push are now out of date.
	s.agg.Invalidate()

	slog.Info("webhook ingested",
		"system", payload.System.ID,
		"metrics", metricsStored,
		"metrics_rejected", metricsRejected,
		"alerts", alertsStored,
		"alerts_rejected", alertsRejected)

	writeJSON(w, r, map[string]any{
		"status":           "ok",
		"metrics_received": metricsStored,
		"metrics_rejected": metricsRejected,
		"alerts_received":  alertsStored,
		"alerts_rejected":  alertsRejected,
	})
}
