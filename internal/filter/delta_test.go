package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finleyb/corkboard/pkg/board"
)

func TestMatchesKindGlob(t *testing.T) {
	c := &Criteria{KindGlob: "card_*", Presence: true}

	assert.True(t, c.Matches(&board.Delta{Kind: board.EventTaskCreated}))
	assert.True(t, c.Matches(&board.Delta{Kind: board.EventTaskDeleted}))
	assert.False(t, c.Matches(&board.Delta{Kind: board.EventGroupCreated}))
	assert.False(t, c.Matches(&board.Delta{Kind: board.EventConnectionDeleted}))
}

func TestMatchesEntityID(t *testing.T) {
	c := &Criteria{EntityID: "t1", Presence: true}

	assert.True(t, c.Matches(&board.Delta{Kind: board.EventTaskUpdated, EntityID: "t1"}))
	assert.False(t, c.Matches(&board.Delta{Kind: board.EventTaskUpdated, EntityID: "t2"}))
}

func TestMatchesPresenceToggle(t *testing.T) {
	presence := &board.Delta{Kind: board.EventPresenceChanged, EntityID: "u1"}

	on := &Criteria{Presence: true}
	assert.True(t, on.Matches(presence))

	off := &Criteria{Presence: false}
	assert.False(t, off.Matches(presence))
	assert.True(t, off.Matches(&board.Delta{Kind: board.EventTaskCreated}), "presence toggle only affects presence events")
}

func TestMatchesCombined(t *testing.T) {
	c := &Criteria{KindGlob: "card_*", EntityID: "t1", Presence: true}

	assert.True(t, c.Matches(&board.Delta{Kind: board.EventTaskUpdated, EntityID: "t1"}))
	assert.False(t, c.Matches(&board.Delta{Kind: board.EventTaskUpdated, EntityID: "t2"}), "all criteria are ANDed")
	assert.False(t, c.Matches(&board.Delta{Kind: board.EventGroupUpdated, EntityID: "t1"}))
}

func TestHasFilters(t *testing.T) {
	assert.False(t, (&Criteria{Presence: true}).HasFilters())
	assert.True(t, (&Criteria{KindGlob: "card_*"}).HasFilters())
	assert.True(t, (&Criteria{EntityID: "t1"}).HasFilters())
}
