package filter

import (
	"path/filepath"

	"github.com/finleyb/corkboard/pkg/board"
)

// Criteria defines filtering criteria for live board deltas.
// All filters are ANDed together - a delta must match ALL criteria to pass.
type Criteria struct {
	KindGlob string // Glob pattern for the event kind, empty = no filter
	EntityID string // Exact match for the target entity, empty = no filter
	Presence bool   // When false, presence_changed events are dropped
}

// Matches returns true if the delta matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(d *board.Delta) bool {
	if !c.Presence && d.Kind == board.EventPresenceChanged {
		return false
	}

	// Kind filtering - glob pattern matching, e.g. "card_*"
	if c.KindGlob != "" {
		matched, err := filepath.Match(c.KindGlob, string(d.Kind))
		if err != nil || !matched {
			return false
		}
	}

	if c.EntityID != "" && d.EntityID != c.EntityID {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.KindGlob != "" || c.EntityID != ""
}
