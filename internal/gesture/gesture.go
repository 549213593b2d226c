// Package gesture turns raw pointer input into board mutation intents.
// A gesture accumulates pointer events locally and emits at most one
// intent when it completes: a card drag ends in a single move intent, a
// connect gesture ends in a single connection-create intent, and anything
// cancelled emits nothing. Intermediate pointer positions never leave the
// process.
package gesture

import (
	"context"

	"github.com/finleyb/corkboard/internal/pending"
	"github.com/finleyb/corkboard/pkg/board"
	"github.com/finleyb/corkboard/pkg/grid"
)

// Board is the slice of the reconciliation engine gestures submit to.
type Board interface {
	MoveTask(ctx context.Context, taskID string, pos board.Position, groupID string) (*pending.Mutation, error)
	CreateConnection(ctx context.Context, fromID, toID string, shape board.ConnectionShape, style board.ConnectionStyle) (*pending.Mutation, error)
}

// TaskAt returns the topmost task whose card contains the point, or nil.
// Cards occupy one grid cell. Later tasks in the slice are treated as
// higher in the stacking order.
func TaskAt(p board.Position, tasks []board.Task, cfg grid.Config) *board.Task {
	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		if p.X >= t.Position.X && p.X <= t.Position.X+cfg.CellWidth &&
			p.Y >= t.Position.Y && p.Y <= t.Position.Y+cfg.CellHeight {
			return &tasks[i]
		}
	}
	return nil
}

// GroupAt returns the topmost group whose bounding box (header included)
// contains the point, or nil.
func GroupAt(p board.Position, groups []board.Group, cfg grid.Config) *board.Group {
	for i := len(groups) - 1; i >= 0; i-- {
		if grid.PointInGroup(p, &groups[i], cfg) {
			return &groups[i]
		}
	}
	return nil
}

// DragSession is one in-progress card drag, begun on pointer-down over a
// card. Move updates a local-only preview; Drop snaps and emits the single
// move intent.
type DragSession struct {
	taskID  string
	grab    board.Position // pointer offset inside the card at pointer-down
	preview board.Position
	active  bool
}

// BeginDrag starts dragging a card. pointer is the pointer-down position,
// cardPos the card's current position; their offset keeps the card from
// jumping under the cursor.
func BeginDrag(taskID string, pointer, cardPos board.Position) *DragSession {
	return &DragSession{
		taskID:  taskID,
		grab:    board.Position{X: pointer.X - cardPos.X, Y: pointer.Y - cardPos.Y},
		preview: cardPos,
		active:  true,
	}
}

// Move updates the local preview position from a pointer-move event.
func (d *DragSession) Move(pointer board.Position) {
	if !d.active {
		return
	}
	d.preview = board.Position{X: pointer.X - d.grab.X, Y: pointer.Y - d.grab.Y}
}

// Preview returns the card's current local-only position.
func (d *DragSession) Preview() board.Position {
	return d.preview
}

// Active reports whether the drag is still in progress.
func (d *DragSession) Active() bool {
	return d.active
}

// Drop completes the drag at a pointer-up position and emits exactly one
// move intent. Released inside a group's bounding box the card joins that
// group at its free position; released on open canvas it snaps to the
// nearest grid cell and leaves any group.
func (d *DragSession) Drop(ctx context.Context, b Board, pointer board.Position, groups []board.Group, cfg grid.Config) (*pending.Mutation, error) {
	if !d.active {
		return nil, nil
	}
	d.Move(pointer)
	d.active = false

	if g := GroupAt(pointer, groups, cfg); g != nil {
		return b.MoveTask(ctx, d.taskID, d.preview, g.ID)
	}
	return b.MoveTask(ctx, d.taskID, grid.Snap(d.preview, cfg), "")
}

// Cancel abandons the drag with no side effect; the card stays where the
// authoritative state says it is.
func (d *DragSession) Cancel() {
	d.active = false
}

// ConnectSession is one in-progress edge draw, begun on pointer-down over
// a card's connection point while in connecting mode.
type ConnectSession struct {
	fromID string
	active bool
}

// BeginConnect starts drawing an edge from the given task.
func BeginConnect(fromTaskID string) *ConnectSession {
	return &ConnectSession{fromID: fromTaskID, active: true}
}

// Active reports whether the connect gesture is still in progress.
func (c *ConnectSession) Active() bool {
	return c.active
}

// Drop completes the gesture at a pointer-up position. Over another
// card's body it emits a single connection-create intent; anywhere else
// (open canvas, the source card itself) it cancels with no side effect.
func (c *ConnectSession) Drop(ctx context.Context, b Board, pointer board.Position, tasks []board.Task, cfg grid.Config) (*pending.Mutation, error) {
	if !c.active {
		return nil, nil
	}
	c.active = false

	target := TaskAt(pointer, tasks, cfg)
	if target == nil || target.ID == c.fromID {
		return nil, nil
	}
	return b.CreateConnection(ctx, c.fromID, target.ID, board.ShapeBezier, board.StyleSolid)
}

// Cancel abandons the gesture with no side effect.
func (c *ConnectSession) Cancel() {
	c.active = false
}

// Selection is purely local UI state: which entities are highlighted.
// Never synchronized to the server.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle flips an entity in or out of the selection.
func (s *Selection) Toggle(id string) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
}

// Has reports whether an entity is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}
