// Package api provides the fleetmon HTTP interface: the collector-facing
// ingestion webhook and the dashboard-facing read API.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetmon/internal/fleet"
	"fleetmon/internal/model"
	"fleetmon/internal/store"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "fleetmon/docs/swagger"
)

// Server is the fleetmon HTTP server.
type Server struct {
	store  *store.Store
	agg    *fleet.Aggregator
	apiKey string
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a new HTTP server. apiKey guards the webhook endpoint
// when non-empty.
func NewServer(addr string, st *store.Store, agg *fleet.Aggregator, apiKey string) *Server {
	srv := &Server{
		store:  st,
		agg:    agg,
		apiKey: apiKey,
		mux:    http.NewServeMux(),
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	// Ingestion
	s.mux.HandleFunc("POST /webhook/metrics", requireAPIKey(s.apiKey, s.handleWebhook))

	// Registry and raw events
	s.mux.HandleFunc("GET /systems", s.handleSystems)
	s.mux.HandleFunc("GET /systems/{id}/metrics", s.handleSystemMetrics)

	// Entity views
	s.mux.HandleFunc("GET /systems/{id}/disks", s.handleSystemDisks)
	s.mux.HandleFunc("GET /systems/{id}/pools", s.handleSystemPools)
	s.mux.HandleFunc("GET /systems/{id}/replication", s.handleSystemReplication)
	s.mux.HandleFunc("GET /disks", s.handleAllDisks)
	s.mux.HandleFunc("GET /pools", s.handleAllPools)
	s.mux.HandleFunc("GET /replication", s.handleAllReplication)

	// Summaries
	s.mux.HandleFunc("GET /disks/summary", s.handleDisksSummary)
	s.mux.HandleFunc("GET /pools/summary", s.handlePoolsSummary)
	s.mux.HandleFunc("GET /replication/summary", s.handleReplicationSummary)
	s.mux.HandleFunc("GET /dashboard/summary", s.handleDashboardSummary)

	// Alerts
	s.mux.HandleFunc("GET /alerts", s.handleAlerts)
	s.mux.HandleFunc("POST /alerts/{id}/acknowledge", s.handleAcknowledgeAlert)
	s.mux.HandleFunc("POST /alerts/{id}/create-ticket", s.handleCreateTicket)

	// Health check
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Swagger UI
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeSummaryError distinguishes an aggregation timeout (retryable 503)
// from a storage failure. It must never surface an empty summary that
// could be mistaken for all-healthy.
func writeSummaryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, fleet.ErrAggregationTimeout) {
		writeError(w, http.StatusServiceUnavailable, "aggregation temporarily unavailable")
		return
	}
	slog.Error("computing summary", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// hoursParam parses the hours query parameter, clamped to [1, 8760].
func hoursParam(r *http.Request, def int) int {
	hours := def
	if h := r.URL.Query().Get("hours"); h != "" {
		if v, err := strconv.Atoi(h); err == nil {
			hours = v
		}
	}
	if hours < 1 {
		hours = 1
	}
	if hours > 8760 {
		hours = 8760
	}
	return hours
}

// @Summary Health check
// @Description Returns service status and storage reachability
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("health check", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "service": "fleetmon"})
		return
	}
	writeJSON(w, r, map[string]string{"status": "ok", "service": "fleetmon"})
}

// @Summary List systems
// @Description Returns all monitored systems ordered by name
// @Produce json
// @Success 200 {array} model.System
// @Router /systems [get]
func (s *Server) handleSystems(w http.ResponseWriter, r *http.Request) {
	systems, err := s.store.ListSystems(r.Context())
	if err != nil {
		slog.Error("listing systems", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if systems == nil {
		systems = []model.System{}
	}
	writeJSON(w, r, systems)
}

// @Summary Raw metric events for a system
// @Description Returns stored metric events newest first
// @Produce json
// @Param id path string true "System ID"
// @Param metric_type query string false "Filter by metric type"
// @Param hours query int false "Hours of history (1-8760)" default(24)
// @Success 200 {array} model.MetricEvent
// @Router /systems/{id}/metrics [get]
func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	systemID := r.PathValue("id")
	hours := hoursParam(r, 24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	var types []string
	if mt := r.URL.Query().Get("metric_type"); mt != "" {
		types = []string{mt}
	}

	events, err := s.store.QueryEvents(r.Context(), systemID, types, since)
	if err != nil {
		slog.Error("querying system metrics", "system", systemID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Stored order is ascending; the API reports newest first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	if events == nil {
		events = []model.MetricEvent{}
	}
	writeJSON(w, r, events)
}

// @Summary List alerts
// @Description Returns alerts newest first, optionally filtered by acknowledgment
// @Produce json
// @Param acknowledged query bool false "Filter by acknowledgment state"
// @Success 200 {array} model.Alert
// @Router /alerts [get]
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var acknowledged *bool
	if v := r.URL.Query().Get("acknowledged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid acknowledged parameter")
			return
		}
		acknowledged = &b
	}

	alerts, err := s.store.ListAlerts(r.Context(), acknowledged)
	if err != nil {
		slog.Error("listing alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, r, alerts)
}

// @Summary Acknowledge an alert
// @Produce json
// @Param id path int true "Alert ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /alerts/{id}/acknowledge [post]
func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	err = s.store.AcknowledgeAlert(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		slog.Error("acknowledging alert", "alert_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, map[string]any{"status": "ok", "alert_id": id})
}

type ticketRequest struct {
	PSA string `json:"psa"`
}

// @Summary Create a ticket for an alert
// @Description Records a ticket reference on the alert and acknowledges it
// @Accept json
// @Produce json
// @Param id path int true "Alert ID"
// @Param body body ticketRequest true "Ticket target"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /alerts/{id}/create-ticket [post]
func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	var req ticketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PSA == "" {
		writeError(w, http.StatusBadRequest, "psa is required")
		return
	}

	// The PSA integration itself lives elsewhere; the sink only records
	// the reference.
	ticketID := strings.ToUpper(req.PSA) + "-" + strconv.FormatInt(id, 10) + "-001"

	err = s.store.SetAlertTicket(r.Context(), id, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		slog.Error("creating ticket", "alert_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, map[string]any{
		"status":    "ok",
		"ticket_id": ticketID,
		"psa":       req.PSA,
		"message":   "Ticket created in " + req.PSA + " (mock)",
	})
}
