package gesture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finleyb/corkboard/internal/pending"
	"github.com/finleyb/corkboard/pkg/board"
	"github.com/finleyb/corkboard/pkg/grid"
)

// recordingBoard captures the intents a gesture emits.
type recordingBoard struct {
	moves    []moveCall
	connects []connectCall
}

type moveCall struct {
	taskID  string
	pos     board.Position
	groupID string
}

type connectCall struct {
	fromID string
	toID   string
	shape  board.ConnectionShape
	style  board.ConnectionStyle
}

func (r *recordingBoard) MoveTask(ctx context.Context, taskID string, pos board.Position, groupID string) (*pending.Mutation, error) {
	r.moves = append(r.moves, moveCall{taskID: taskID, pos: pos, groupID: groupID})
	return &pending.Mutation{}, nil
}

func (r *recordingBoard) CreateConnection(ctx context.Context, fromID, toID string, shape board.ConnectionShape, style board.ConnectionStyle) (*pending.Mutation, error) {
	r.connects = append(r.connects, connectCall{fromID: fromID, toID: toID, shape: shape, style: style})
	return &pending.Mutation{}, nil
}

func TestTaskAt(t *testing.T) {
	cfg := grid.DefaultConfig()
	tasks := []board.Task{
		{ID: "t1", Position: board.Position{X: 16, Y: 16}},
		{ID: "t2", Position: board.Position{X: 100, Y: 100}},
	}

	// t2 is later in the slice, so it wins where the cards overlap.
	got := TaskAt(board.Position{X: 120, Y: 120}, tasks, cfg)
	require.NotNil(t, got)
	assert.Equal(t, "t2", got.ID)

	got = TaskAt(board.Position{X: 20, Y: 20}, tasks, cfg)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ID)

	assert.Nil(t, TaskAt(board.Position{X: 2000, Y: 2000}, tasks, cfg))
}

func TestGroupAt(t *testing.T) {
	cfg := grid.DefaultConfig()
	groups := []board.Group{
		{ID: "g1", Position: board.Position{X: 0, Y: 0}, Size: board.Size{Width: 500, Height: 400}},
		{ID: "g2", Position: board.Position{X: 100, Y: 100}, Size: board.Size{Width: 200, Height: 200}},
	}

	got := GroupAt(board.Position{X: 150, Y: 150}, groups, cfg)
	require.NotNil(t, got)
	assert.Equal(t, "g2", got.ID, "topmost group wins")

	got = GroupAt(board.Position{X: 450, Y: 50}, groups, cfg)
	require.NotNil(t, got)
	assert.Equal(t, "g1", got.ID)

	assert.Nil(t, GroupAt(board.Position{X: 900, Y: 900}, groups, cfg))
}

func TestDragPreviewFollowsPointerWithGrabOffset(t *testing.T) {
	cardPos := board.Position{X: 252, Y: 172}
	// Grabbed 30,20 inside the card.
	d := BeginDrag("t1", board.Position{X: 282, Y: 192}, cardPos)
	assert.True(t, d.Active())
	assert.Equal(t, cardPos, d.Preview(), "preview starts at the card position")

	d.Move(board.Position{X: 382, Y: 292})
	assert.Equal(t, board.Position{X: 352, Y: 272}, d.Preview(), "card must not jump under the cursor")
}

func TestDragDropOnCanvasSnapsAndUngroups(t *testing.T) {
	cfg := grid.DefaultConfig()
	b := &recordingBoard{}

	d := BeginDrag("t1", board.Position{X: 20, Y: 20}, board.Position{X: 16, Y: 16})
	d.Move(board.Position{X: 200, Y: 150})
	d.Move(board.Position{X: 440, Y: 290})

	_, err := d.Drop(context.Background(), b, board.Position{X: 454, Y: 304}, nil, cfg)
	require.NoError(t, err)
	assert.False(t, d.Active())

	require.Len(t, b.moves, 1, "a drag emits exactly one intent regardless of pointer moves")
	mv := b.moves[0]
	assert.Equal(t, "t1", mv.taskID)
	assert.Empty(t, mv.groupID, "canvas drop leaves any group")
	assert.Equal(t, grid.Snap(mv.pos, cfg), mv.pos, "canvas drop is grid-aligned")
}

func TestDragDropInsideGroupKeepsFreePosition(t *testing.T) {
	cfg := grid.DefaultConfig()
	b := &recordingBoard{}
	groups := []board.Group{
		{ID: "g1", Position: board.Position{X: 300, Y: 200}, Size: board.Size{Width: 400, Height: 300}},
	}

	d := BeginDrag("t1", board.Position{X: 16, Y: 16}, board.Position{X: 16, Y: 16})
	_, err := d.Drop(context.Background(), b, board.Position{X: 333, Y: 333}, groups, cfg)
	require.NoError(t, err)

	require.Len(t, b.moves, 1)
	mv := b.moves[0]
	assert.Equal(t, "g1", mv.groupID)
	assert.Equal(t, board.Position{X: 333, Y: 333}, mv.pos, "group drop keeps the free position, no snapping")
}

func TestDragCancelEmitsNothing(t *testing.T) {
	cfg := grid.DefaultConfig()
	b := &recordingBoard{}

	d := BeginDrag("t1", board.Position{X: 20, Y: 20}, board.Position{X: 16, Y: 16})
	d.Move(board.Position{X: 500, Y: 500})
	d.Cancel()

	m, err := d.Drop(context.Background(), b, board.Position{X: 500, Y: 500}, nil, cfg)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Empty(t, b.moves, "cancelled drag must emit no intent")
}

func TestDropTwiceEmitsOnce(t *testing.T) {
	cfg := grid.DefaultConfig()
	b := &recordingBoard{}

	d := BeginDrag("t1", board.Position{X: 20, Y: 20}, board.Position{X: 16, Y: 16})
	_, err := d.Drop(context.Background(), b, board.Position{X: 100, Y: 100}, nil, cfg)
	require.NoError(t, err)
	_, err = d.Drop(context.Background(), b, board.Position{X: 200, Y: 200}, nil, cfg)
	require.NoError(t, err)

	assert.Len(t, b.moves, 1)
}

func TestConnectDropOverTask(t *testing.T) {
	cfg := grid.DefaultConfig()
	b := &recordingBoard{}
	tasks := []board.Task{
		{ID: "t1", Position: board.Position{X: 16, Y: 16}},
		{ID: "t2", Position: board.Position{X: 252, Y: 16}},
	}

	c := BeginConnect("t1")
	_, err := c.Drop(context.Background(), b, board.Position{X: 260, Y: 30}, tasks, cfg)
	require.NoError(t, err)
	assert.False(t, c.Active())

	require.Len(t, b.connects, 1)
	cc := b.connects[0]
	assert.Equal(t, "t1", cc.fromID)
	assert.Equal(t, "t2", cc.toID)
	assert.Equal(t, board.ShapeBezier, cc.shape)
	assert.Equal(t, board.StyleSolid, cc.style)
}

func TestConnectDropOnCanvasCancels(t *testing.T) {
	cfg := grid.DefaultConfig()
	b := &recordingBoard{}
	tasks := []board.Task{{ID: "t1", Position: board.Position{X: 16, Y: 16}}}

	c := BeginConnect("t1")
	m, err := c.Drop(context.Background(), b, board.Position{X: 900, Y: 900}, tasks, cfg)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Empty(t, b.connects)
}

func TestConnectDropOnSourceCancels(t *testing.T) {
	cfg := grid.DefaultConfig()
	b := &recordingBoard{}
	tasks := []board.Task{{ID: "t1", Position: board.Position{X: 16, Y: 16}}}

	c := BeginConnect("t1")
	m, err := c.Drop(context.Background(), b, board.Position{X: 20, Y: 20}, tasks, cfg)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Empty(t, b.connects, "an edge back to its own source is a cancel, not an intent")
}

func TestSelection(t *testing.T) {
	s := NewSelection()
	assert.False(t, s.Has("t1"))

	s.Toggle("t1")
	s.Toggle("t2")
	assert.True(t, s.Has("t1"))
	assert.True(t, s.Has("t2"))

	s.Toggle("t1")
	assert.False(t, s.Has("t1"))

	s.Clear()
	assert.False(t, s.Has("t2"))
}
