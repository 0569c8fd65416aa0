// Package resolve turns raw metric events into per-entity current-state
// views. It is the single place where string-keyed metric names are
// interpreted; everything downstream works with typed entity views.
package resolve

import (
	"sort"

	"fleetmon/internal/model"
)

// Key identifies one entity within the fleet.
type Key struct {
	SystemID string
	EntityID string
}

// Result holds the entity views produced by one resolution pass.
type Result struct {
	Views map[Key]*model.EntityView

	// Unclassified counts events whose names matched no vocabulary suffix.
	// They remain stored raw but contribute to no view.
	Unclassified int
}

// Resolve folds metric events into one EntityView per (system, entity)
// pair. Events must be ordered by (timestamp, id) ascending, as QueryEvents
// returns them. Per attribute the snapshot with the greatest event
// timestamp wins; an identical timestamp is resolved in favor of the
// later-ingested event. Entities with zero resolved attributes are never
// emitted, so malformed names cannot produce phantom entities.
func Resolve(d Domain, events []model.MetricEvent) Result {
	res := Result{Views: make(map[Key]*model.EntityView)}

	for _, ev := range events {
		entityID, attr, ok := Split(d, ev.MetricName)
		if !ok {
			res.Unclassified++
			continue
		}

		key := Key{SystemID: ev.SystemID, EntityID: entityID}
		view, exists := res.Views[key]
		if !exists {
			view = &model.EntityView{
				EntityID:   entityID,
				SystemID:   ev.SystemID,
				Attributes: make(map[string]model.AttributeSnapshot),
			}
			res.Views[key] = view
		}

		// Input order is ascending, so >= keeps the later-ingested event
		// on timestamp ties while an out-of-order older event never
		// overwrites a newer value.
		if cur, has := view.Attributes[attr]; has && ev.Timestamp.Before(cur.Timestamp) {
			continue
		}
		view.Attributes[attr] = model.AttributeSnapshot{
			Value:     ev.Value,
			Unit:      ev.Unit,
			Timestamp: ev.Timestamp,
			Metadata:  ev.Metadata,
		}
	}

	for _, view := range res.Views {
		for _, snap := range view.Attributes {
			if snap.Timestamp.After(view.LastUpdated) {
				view.LastUpdated = snap.Timestamp
			}
		}
	}

	return res
}

// SortedViews returns the views ordered by (system, entity) for stable
// output.
func (r Result) SortedViews() []*model.EntityView {
	views := make([]*model.EntityView, 0, len(r.Views))
	for _, v := range r.Views {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].SystemID != views[j].SystemID {
			return views[i].SystemID < views[j].SystemID
		}
		return views[i].EntityID < views[j].EntityID
	})
	return views
}
