package api

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"fleetmon/internal/model"
	"fleetmon/internal/resolve"
)

// historyPoint is one raw sample kept alongside a resolved entity view so
// the dashboard can render trends.
type historyPoint struct {
	Attribute string    `json:"attribute"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type entityDetail struct {
	SystemID    string                             `json:"system_id"`
	LastUpdated time.Time                          `json:"last_updated"`
	Metrics     map[string]model.AttributeSnapshot `json:"metrics"`
	History     []historyPoint                     `json:"history"`
}

type diskDetail struct {
	DiskID string `json:"disk_id"`
	entityDetail
}

type poolDetail struct {
	PoolName string `json:"pool_name"`
	entityDetail
}

type taskDetail struct {
	TaskID string `json:"task_id"`
	entityDetail
}

// resolveSystemDomain resolves entity views for one system over an
// hours-bounded window and returns the per-entity details in entity order.
// History is newest first, matching the raw metrics endpoint.
func (s *Server) resolveSystemDomain(r *http.Request, d resolve.Domain) ([]*model.EntityView, map[string][]historyPoint, error) {
	systemID := r.PathValue("id")
	hours := hoursParam(r, 24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	events, err := s.store.QueryEvents(r.Context(), systemID, resolve.MetricTypes(d), since)
	if err != nil {
		return nil, nil, err
	}

	res := resolve.Resolve(d, events)

	history := make(map[string][]historyPoint)
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		entityID, attr, ok := resolve.Split(d, ev.MetricName)
		if !ok {
			continue
		}
		history[entityID] = append(history[entityID], historyPoint{
			Attribute: attr,
			Value:     ev.Value,
			Timestamp: ev.Timestamp,
		})
	}

	return res.SortedViews(), history, nil
}

func detailOf(v *model.EntityView, history map[string][]historyPoint) entityDetail {
	hist := history[v.EntityID]
	if hist == nil {
		hist = []historyPoint{}
	}
	return entityDetail{
		SystemID:    v.SystemID,
		LastUpdated: v.LastUpdated,
		Metrics:     v.Attributes,
		History:     hist,
	}
}

// @Summary Disk views for a system
// @Description Returns resolved per-disk state plus raw history
// @Produce json
// @Param id path string true "System ID"
// @Param hours query int false "Hours of history (1-8760)" default(24)
// @Success 200 {array} diskDetail
// @Router /systems/{id}/disks [get]
func (s *Server) handleSystemDisks(w http.ResponseWriter, r *http.Request) {
	views, history, err := s.resolveSystemDomain(r, resolve.DomainDisk)
	if err != nil {
		slog.Error("resolving system disks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]diskDetail, 0, len(views))
	for _, v := range views {
		out = append(out, diskDetail{DiskID: v.EntityID, entityDetail: detailOf(v, history)})
	}
	writeJSON(w, r, out)
}

// @Summary Pool views for a system
// @Produce json
// @Param id path string true "System ID"
// @Param hours query int false "Hours of history (1-8760)" default(24)
// @Success 200 {array} poolDetail
// @Router /systems/{id}/pools [get]
func (s *Server) handleSystemPools(w http.ResponseWriter, r *http.Request) {
	views, history, err := s.resolveSystemDomain(r, resolve.DomainPool)
	if err != nil {
		slog.Error("resolving system pools", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]poolDetail, 0, len(views))
	for _, v := range views {
		out = append(out, poolDetail{PoolName: v.EntityID, entityDetail: detailOf(v, history)})
	}
	writeJSON(w, r, out)
}

// @Summary Replication task views for a system
// @Produce json
// @Param id path string true "System ID"
// @Param hours query int false "Hours of history (1-8760)" default(24)
// @Success 200 {array} taskDetail
// @Router /systems/{id}/replication [get]
func (s *Server) handleSystemReplication(w http.ResponseWriter, r *http.Request) {
	views, history, err := s.resolveSystemDomain(r, resolve.DomainReplication)
	if err != nil {
		slog.Error("resolving system replication", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]taskDetail, 0, len(views))
	for _, v := range views {
		out = append(out, taskDetail{TaskID: v.EntityID, entityDetail: detailOf(v, history)})
	}
	writeJSON(w, r, out)
}

type diskEntry struct {
	DiskID     string                             `json:"disk_id"`
	Attributes map[string]model.AttributeSnapshot `json:"attributes"`
}

type poolEntry struct {
	PoolName   string                             `json:"pool_name"`
	Attributes map[string]model.AttributeSnapshot `json:"attributes"`
}

type taskEntry struct {
	TaskID     string                             `json:"task_id"`
	Attributes map[string]model.AttributeSnapshot `json:"attributes"`
}

type systemGroup struct {
	SystemID   string               `json:"system_id"`
	SystemName string               `json:"system_name"`
	ClientName string               `json:"client_name,omitempty"`
	Disks      map[string]diskEntry `json:"disks,omitempty"`
	Pools      map[string]poolEntry `json:"pools,omitempty"`
	Tasks      map[string]taskEntry `json:"tasks,omitempty"`
}

// groupBySystem arranges resolved views under their owning system, in
// system ID order. Systems with no resolved entities are omitted.
func (s *Server) groupBySystem(r *http.Request, d resolve.Domain) ([]*systemGroup, error) {
	res, err := s.agg.ResolveDomain(r.Context(), d, "")
	if err != nil {
		return nil, err
	}

	systems, err := s.store.ListSystems(r.Context())
	if err != nil {
		return nil, err
	}
	names := make(map[string]model.System, len(systems))
	for _, sys := range systems {
		names[sys.ID] = sys
	}

	groups := make(map[string]*systemGroup)
	for _, v := range res.SortedViews() {
		g, ok := groups[v.SystemID]
		if !ok {
			sys := names[v.SystemID]
			g = &systemGroup{
				SystemID:   v.SystemID,
				SystemName: sys.Name,
				ClientName: sys.ClientName,
			}
			groups[v.SystemID] = g
		}
		switch d {
		case resolve.DomainDisk:
			if g.Disks == nil {
				g.Disks = make(map[string]diskEntry)
			}
			g.Disks[v.EntityID] = diskEntry{DiskID: v.EntityID, Attributes: v.Attributes}
		case resolve.DomainPool:
			if g.Pools == nil {
				g.Pools = make(map[string]poolEntry)
			}
			g.Pools[v.EntityID] = poolEntry{PoolName: v.EntityID, Attributes: v.Attributes}
		case resolve.DomainReplication:
			if g.Tasks == nil {
				g.Tasks = make(map[string]taskEntry)
			}
			g.Tasks[v.EntityID] = taskEntry{TaskID: v.EntityID, Attributes: v.Attributes}
		}
	}

	out := make([]*systemGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SystemID < out[j].SystemID })
	return out, nil
}

func (s *Server) handleGrouped(w http.ResponseWriter, r *http.Request, d resolve.Domain) {
	groups, err := s.groupBySystem(r, d)
	if err != nil {
		writeSummaryError(w, r, err)
		return
	}
	writeJSON(w, r, groups)
}

// @Summary Latest disk state across all systems
// @Produce json
// @Success 200 {array} systemGroup
// @Failure 503 {object} map[string]string
// @Router /disks [get]
func (s *Server) handleAllDisks(w http.ResponseWriter, r *http.Request) {
	s.handleGrouped(w, r, resolve.DomainDisk)
}

// @Summary Latest pool state across all systems
// @Produce json
// @Success 200 {array} systemGroup
// @Failure 503 {object} map[string]string
// @Router /pools [get]
func (s *Server) handleAllPools(w http.ResponseWriter, r *http.Request) {
	s.handleGrouped(w, r, resolve.DomainPool)
}

// @Summary Latest replication state across all systems
// @Produce json
// @Success 200 {array} systemGroup
// @Failure 503 {object} map[string]string
// @Router /replication [get]
func (s *Server) handleAllReplication(w http.ResponseWriter, r *http.Request) {
	s.handleGrouped(w, r, resolve.DomainReplication)
}

// @Summary Fleet-wide disk health summary
// @Produce json
// @Success 200 {object} model.DisksSummary
// @Failure 503 {object} map[string]string
// @Router /disks/summary [get]
func (s *Server) handleDisksSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.agg.DisksSummary(r.Context())
	if err != nil {
		writeSummaryError(w, r, err)
		return
	}
	writeJSON(w, r, summary)
}

// @Summary Fleet-wide pool health summary
// @Produce json
// @Success 200 {object} model.PoolsSummary
// @Failure 503 {object} map[string]string
// @Router /pools/summary [get]
func (s *Server) handlePoolsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.agg.PoolsSummary(r.Context())
	if err != nil {
		writeSummaryError(w, r, err)
		return
	}
	writeJSON(w, r, summary)
}

// @Summary Fleet-wide replication health summary
// @Produce json
// @Success 200 {object} model.ReplicationSummary
// @Failure 503 {object} map[string]string
// @Router /replication/summary [get]
func (s *Server) handleReplicationSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.agg.ReplicationSummary(r.Context())
	if err != nil {
		writeSummaryError(w, r, err)
		return
	}
	writeJSON(w, r, summary)
}

// @Summary Top-level dashboard summary
// @Produce json
// @Success 200 {object} model.DashboardSummary
// @Failure 503 {object} map[string]string
// @Router /dashboard/summary [get]
func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.agg.DashboardSummary(r.Context())
	if err != nil {
		writeSummaryError(w, r, err)
		return
	}
	writeJSON(w, r, summary)
}
