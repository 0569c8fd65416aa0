// Package fleet folds classified entity views into the summary shapes the
// dashboard consumes. Summaries are always recomputed from stored events;
// the only caching is a short-TTL layer that ingestion flushes, so a cached
// summary can never outlive the events it was derived from.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"fleetmon/internal/health"
	"fleetmon/internal/model"
	"fleetmon/internal/resolve"
	"fleetmon/internal/store"

	gocache "github.com/patrickmn/go-cache"
)

// ErrAggregationTimeout is returned when a fleet-wide aggregation exceeds
// its query budget. Callers must surface it as a retryable failure, never
// as an empty (all-healthy-looking) summary.
var ErrAggregationTimeout = errors.New("aggregation timed out")

const (
	cacheKeyDisks       = "summary:disks"
	cacheKeyPools       = "summary:pools"
	cacheKeyReplication = "summary:replication"
	cacheKeyDashboard   = "summary:dashboard"
)

// Aggregator computes fleet-wide summaries over the lookback window.
type Aggregator struct {
	store      *store.Store
	thresholds health.Thresholds
	lookback   time.Duration
	timeout    time.Duration
	cache      *gocache.Cache

	now func() time.Time // stubbed in tests
}

// NewAggregator creates an aggregator. cacheTTL of zero disables caching.
func NewAggregator(st *store.Store, th health.Thresholds, lookback, timeout, cacheTTL time.Duration) *Aggregator {
	if cacheTTL <= 0 {
		// Entries expire immediately, effectively disabling the cache.
		cacheTTL = time.Nanosecond
	}
	return &Aggregator{
		store:      st,
		thresholds: th,
		lookback:   lookback,
		timeout:    timeout,
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
		now:        time.Now,
	}
}

// Invalidate drops all cached summaries. Called after every ingestion so
// readers never observe aggregates older than the newest event.
func (a *Aggregator) Invalidate() {
	a.cache.Flush()
}

// ResolveDomain loads and resolves all entity views of a domain, fleet-wide
// or for a single system when systemID is non-empty.
func (a *Aggregator) ResolveDomain(ctx context.Context, d resolve.Domain, systemID string) (resolve.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	since := a.now().Add(-a.lookback)
	events, err := a.store.QueryEvents(ctx, systemID, resolve.MetricTypes(d), since)
	if err != nil {
		return resolve.Result{}, mapTimeout(err)
	}
	return resolve.Resolve(d, events), nil
}

// DisksSummary computes the fleet-wide disk health rollup.
func (a *Aggregator) DisksSummary(ctx context.Context) (model.DisksSummary, error) {
	if v, ok := a.cache.Get(cacheKeyDisks); ok {
		return v.(model.DisksSummary), nil
	}

	res, err := a.ResolveDomain(ctx, resolve.DomainDisk, "")
	if err != nil {
		return model.DisksSummary{}, err
	}

	var s model.DisksSummary
	var tempSum float64
	var tempCount int
	for _, view := range res.SortedViews() {
		h := health.ClassifyDisk(view, a.thresholds)
		s.TotalDisks++
		switch h.Status {
		case health.StatusHealthy:
			s.HealthyDisks++
		case health.StatusWarning:
			s.Warnings++
		case health.StatusCritical:
			s.Critical++
		}
		if h.SmartFailed {
			s.SmartFailures++
		}
		if h.Temperature != nil {
			tempSum += *h.Temperature
			tempCount++
			if s.HottestDisk == nil || *h.Temperature > s.HottestDisk.Temperature {
				s.HottestDisk = &model.HottestDisk{
					Disk:        view.EntityID,
					Temperature: *h.Temperature,
					SystemID:    view.SystemID,
				}
			}
		}
	}
	if tempCount > 0 {
		avg := round1(tempSum / float64(tempCount))
		s.AvgTemperature = &avg
	}

	a.cache.Set(cacheKeyDisks, s, gocache.DefaultExpiration)
	return s, nil
}

// PoolsSummary computes the fleet-wide pool health rollup.
func (a *Aggregator) PoolsSummary(ctx context.Context) (model.PoolsSummary, error) {
	if v, ok := a.cache.Get(cacheKeyPools); ok {
		return v.(model.PoolsSummary), nil
	}

	res, err := a.ResolveDomain(ctx, resolve.DomainPool, "")
	if err != nil {
		return model.PoolsSummary{}, err
	}

	now := a.now()
	var s model.PoolsSummary
	var totalGB, usedGB float64
	for _, view := range res.SortedViews() {
		h := health.ClassifyPool(view, a.thresholds, now)
		s.TotalPools++
		switch h.Status {
		case health.StatusHealthy:
			s.HealthyPools++
		case health.StatusDegraded:
			s.DegradedPools++
		}
		if h.NeedsScrub {
			s.NeedsScrub++
		}
		if h.ResilverActive {
			s.ActiveResilvers++
		}
		if h.CapacityWarning {
			s.CapacityWarnings++
		}
		if h.TotalGB != nil {
			totalGB += *h.TotalGB
		}
		if h.UsedGB != nil {
			usedGB += *h.UsedGB
		}
	}
	s.TotalCapacityTB = round2(totalGB / 1024)
	s.UsedCapacityTB = round2(usedGB / 1024)

	a.cache.Set(cacheKeyPools, s, gocache.DefaultExpiration)
	return s, nil
}

// ReplicationSummary computes the fleet-wide replication health rollup.
func (a *Aggregator) ReplicationSummary(ctx context.Context) (model.ReplicationSummary, error) {
	if v, ok := a.cache.Get(cacheKeyReplication); ok {
		return v.(model.ReplicationSummary), nil
	}

	res, err := a.ResolveDomain(ctx, resolve.DomainReplication, "")
	if err != nil {
		return model.ReplicationSummary{}, err
	}

	now := a.now()
	var s model.ReplicationSummary
	for _, view := range res.SortedViews() {
		h := health.ClassifyReplication(view, a.thresholds, now)
		s.TotalTasks++
		switch h.Status {
		case health.StatusSuccess:
			s.HealthyTasks++
		case health.StatusFailed:
			s.FailedTasks++
		case health.StatusStale:
			s.StaleTasks++
			if h.HoursSinceRun != nil {
				if s.OldestStale == nil || *h.HoursSinceRun > s.OldestStale.HoursAgo {
					s.OldestStale = &model.OldestStale{
						Task:     view.EntityID,
						SystemID: view.SystemID,
						HoursAgo: round1(*h.HoursSinceRun),
					}
				}
			}
		}
		if snap, ok := view.Attributes[resolve.AttrStatus]; ok && snap.Value == health.ReplicationSuccess {
			if s.LastSuccess == nil || snap.Timestamp.After(*s.LastSuccess) {
				ts := snap.Timestamp
				s.LastSuccess = &ts
			}
		}
	}

	a.cache.Set(cacheKeyReplication, s, gocache.DefaultExpiration)
	return s, nil
}

// DashboardSummary composes the top-level fleet rollup: system liveness
// from the registry, unacknowledged alert counts, and total pool storage.
func (a *Aggregator) DashboardSummary(ctx context.Context) (model.DashboardSummary, error) {
	if v, ok := a.cache.Get(cacheKeyDashboard); ok {
		return v.(model.DashboardSummary), nil
	}

	tctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	now := a.now()
	var s model.DashboardSummary

	systems, err := a.store.ListSystems(tctx)
	if err != nil {
		return model.DashboardSummary{}, mapTimeout(err)
	}
	s.TotalSystems = len(systems)
	for _, sys := range systems {
		if sys.IsStale(now, a.thresholds.SystemStale) {
			s.StaleSystems++
		} else {
			s.HealthySystems++
		}
	}

	s.Alerts, err = a.store.CountUnacknowledgedAlerts(tctx)
	if err != nil {
		return model.DashboardSummary{}, mapTimeout(err)
	}

	res, err := a.ResolveDomain(ctx, resolve.DomainPool, "")
	if err != nil {
		return model.DashboardSummary{}, err
	}
	var totalGB float64
	for _, view := range res.Views {
		if total := view.Attribute(resolve.AttrTotal); total != nil {
			totalGB += *total
		}
	}
	s.TotalStorageTB = round2(totalGB / 1024)

	a.cache.Set(cacheKeyDashboard, s, gocache.DefaultExpiration)
	return s, nil
}

func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrAggregationTimeout, err)
	}
	return err
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
