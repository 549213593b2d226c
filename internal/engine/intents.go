package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/finleyb/corkboard/internal/pending"
	"github.com/finleyb/corkboard/pkg/board"
)

// ValidationError rejects a malformed mutation intent before any
// optimistic application, e.g. a connection to a nonexistent task.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid mutation: " + e.Reason
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Every intent below follows the same two-phase protocol: validate, apply
// the change to local state synchronously, enqueue a pending mutation with
// a rollback closure, then dispatch the REST call in the background. The
// returned mutation's Result channel delivers the server's verdict; on
// failure the rollback has already restored the pre-mutation state.

// CreateTask creates a task optimistically. A client-generated ID is
// assigned when t.ID is empty and remapped to the server ID on confirm.
func (e *Engine) CreateTask(ctx context.Context, t board.Task) (*pending.Mutation, error) {
	if t.ID == "" {
		t.ID = board.NewID()
	}
	if t.Status == "" {
		t.Status = board.StatusTodo
	}
	if err := t.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	tempID := t.ID
	e.mu.Lock()
	if _, exists := e.tasks[tempID]; exists {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("task %s already exists", tempID)}
	}
	e.tasks[tempID] = copyTask(t)
	e.mu.Unlock()

	m := e.queue.Enqueue(pending.KindCreate, pending.EntityTask, tempID, func() {
		e.mu.Lock()
		delete(e.tasks, tempID)
		e.mu.Unlock()
	})

	go func() {
		created, err := e.api.CreateTask(pending.WithToken(ctx, m.Token), e.projectID, &t)
		if err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.adoptServerTask(tempID, created)
		e.queue.Confirm(m.Token)
	}()
	return m, nil
}

// UpdateTask replaces a task's fields optimistically.
func (e *Engine) UpdateTask(ctx context.Context, t board.Task) (*pending.Mutation, error) {
	if err := t.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	e.mu.Lock()
	prev, ok := e.tasks[t.ID]
	if !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("task %s does not exist", t.ID)}
	}
	e.tasks[t.ID] = copyTask(t)
	e.mu.Unlock()

	return e.dispatchTaskUpdate(ctx, t, prev), nil
}

// MoveTask is the single intent emitted at the end of a card drag: a new
// position plus optional group reassignment. Dropping a task into a
// fixed-status lane also takes that lane's status.
func (e *Engine) MoveTask(ctx context.Context, taskID string, pos board.Position, groupID string) (*pending.Mutation, error) {
	e.mu.Lock()
	prev, ok := e.tasks[taskID]
	if !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("task %s does not exist", taskID)}
	}
	if groupID != "" {
		if _, ok := e.groups[groupID]; !ok {
			e.mu.Unlock()
			return nil, &ValidationError{Reason: fmt.Sprintf("group %s does not exist", groupID)}
		}
	}

	next := copyTask(prev)
	next.Position = pos
	next.GroupID = groupID
	if groupID != "" {
		if g := e.groups[groupID]; g.FixedStatus != "" {
			next.Status = g.FixedStatus
		}
	}
	e.tasks[taskID] = next
	e.mu.Unlock()

	return e.dispatchTaskUpdate(ctx, next, prev), nil
}

// dispatchTaskUpdate enqueues the pending entry for an already-applied
// task update and fires the REST call. Both the rollback and the
// confirmed write are skipped when the task has since been deleted;
// deletes are terminal and an in-flight update must not resurrect one.
func (e *Engine) dispatchTaskUpdate(ctx context.Context, next, prev board.Task) *pending.Mutation {
	m := e.queue.Enqueue(pending.KindUpdate, pending.EntityTask, next.ID, func() {
		e.mu.Lock()
		if _, ok := e.tasks[prev.ID]; ok {
			e.tasks[prev.ID] = copyTask(prev)
		}
		e.mu.Unlock()
	})

	go func() {
		updated, err := e.api.UpdateTask(pending.WithToken(ctx, m.Token), e.projectID, &next)
		if err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.mu.Lock()
		if _, ok := e.tasks[updated.ID]; ok {
			e.tasks[updated.ID] = copyTask(*updated)
		}
		e.mu.Unlock()
		e.queue.Confirm(m.Token)
	}()
	return m
}

// DeleteTask removes a task optimistically, pruning its connections in
// the same transition. Rollback restores the task and the pruned edges.
func (e *Engine) DeleteTask(ctx context.Context, taskID string) (*pending.Mutation, error) {
	e.mu.Lock()
	prev, ok := e.tasks[taskID]
	if !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("task %s does not exist", taskID)}
	}
	pruned := make([]board.Connection, 0)
	for id, c := range e.connections {
		if c.FromID == taskID || c.ToID == taskID {
			pruned = append(pruned, c)
			delete(e.connections, id)
		}
	}
	delete(e.tasks, taskID)
	e.mu.Unlock()

	m := e.queue.Enqueue(pending.KindDelete, pending.EntityTask, taskID, func() {
		e.mu.Lock()
		e.tasks[taskID] = copyTask(prev)
		for _, c := range pruned {
			e.connections[c.ID] = c
		}
		e.mu.Unlock()
	})

	go func() {
		if err := e.api.DeleteTask(pending.WithToken(ctx, m.Token), e.projectID, taskID); err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.queue.Confirm(m.Token)
	}()
	return m, nil
}

// CreateGroup creates a group container optimistically.
func (e *Engine) CreateGroup(ctx context.Context, g board.Group) (*pending.Mutation, error) {
	if g.ID == "" {
		g.ID = board.NewID()
	}
	if err := g.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	tempID := g.ID
	e.mu.Lock()
	if _, exists := e.groups[tempID]; exists {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("group %s already exists", tempID)}
	}
	e.groups[tempID] = g
	e.mu.Unlock()

	m := e.queue.Enqueue(pending.KindCreate, pending.EntityGroup, tempID, func() {
		e.mu.Lock()
		delete(e.groups, tempID)
		e.mu.Unlock()
	})

	go func() {
		created, err := e.api.CreateGroup(pending.WithToken(ctx, m.Token), e.projectID, &g)
		if err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.adoptServerGroup(tempID, created)
		e.queue.Confirm(m.Token)
	}()
	return m, nil
}

// MoveResizeGroup updates a group's position and size. Intermediate drag
// positions pass commit=false and stay local-only; the gesture end passes
// commit=true, which persists once, bounding network chatter to one call
// per gesture.
func (e *Engine) MoveResizeGroup(ctx context.Context, groupID string, pos board.Position, size board.Size, commit bool) (*pending.Mutation, error) {
	e.mu.Lock()
	prev, ok := e.groups[groupID]
	if !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("group %s does not exist", groupID)}
	}

	// The rollback target is the last acknowledged geometry, not the last
	// local preview. Intermediate moves record it once; the commit clears
	// the record whatever the verdict.
	base, tracking := e.groupBase[groupID]
	if !tracking {
		base = prev
	}

	next := prev
	next.Position = pos
	next.Size = size
	e.groups[groupID] = next

	if !commit {
		e.groupBase[groupID] = base
		e.mu.Unlock()
		return nil, nil
	}
	delete(e.groupBase, groupID)
	e.mu.Unlock()

	m := e.queue.Enqueue(pending.KindUpdate, pending.EntityGroup, groupID, func() {
		e.mu.Lock()
		if _, ok := e.groups[groupID]; ok {
			e.groups[groupID] = base
		}
		e.mu.Unlock()
	})

	go func() {
		updated, err := e.api.UpdateGroup(pending.WithToken(ctx, m.Token), e.projectID, &next)
		if err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.mu.Lock()
		if _, ok := e.groups[updated.ID]; ok {
			e.groups[updated.ID] = *updated
		}
		e.mu.Unlock()
		e.queue.Confirm(m.Token)
	}()
	return m, nil
}

// DeleteGroup removes a group optimistically. Tasks inside it become
// ungrouped; their stored positions are already absolute so nothing moves.
func (e *Engine) DeleteGroup(ctx context.Context, groupID string) (*pending.Mutation, error) {
	e.mu.Lock()
	prev, ok := e.groups[groupID]
	if !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("group %s does not exist", groupID)}
	}
	delete(e.groups, groupID)
	delete(e.groupBase, groupID)
	ungrouped := make([]string, 0)
	for id, t := range e.tasks {
		if t.GroupID == groupID {
			t.GroupID = ""
			e.tasks[id] = t
			ungrouped = append(ungrouped, id)
		}
	}
	e.mu.Unlock()

	m := e.queue.Enqueue(pending.KindDelete, pending.EntityGroup, groupID, func() {
		e.mu.Lock()
		e.groups[groupID] = prev
		for _, id := range ungrouped {
			if t, ok := e.tasks[id]; ok {
				t.GroupID = groupID
				e.tasks[id] = t
			}
		}
		e.mu.Unlock()
	})

	go func() {
		if err := e.api.DeleteGroup(pending.WithToken(ctx, m.Token), e.projectID, groupID); err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.queue.Confirm(m.Token)
	}()
	return m, nil
}

// CreateConnection draws a directed edge between two existing tasks.
func (e *Engine) CreateConnection(ctx context.Context, fromID, toID string, shape board.ConnectionShape, style board.ConnectionStyle) (*pending.Mutation, error) {
	conn := board.Connection{
		ID:     board.NewID(),
		FromID: fromID,
		ToID:   toID,
		Shape:  shape,
		Style:  style,
	}
	if err := conn.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	e.mu.Lock()
	if _, ok := e.tasks[fromID]; !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("connection source task %s does not exist", fromID)}
	}
	if _, ok := e.tasks[toID]; !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("connection target task %s does not exist", toID)}
	}
	tempID := conn.ID
	e.connections[tempID] = conn
	e.mu.Unlock()

	m := e.queue.Enqueue(pending.KindCreate, pending.EntityConnection, tempID, func() {
		e.mu.Lock()
		delete(e.connections, tempID)
		e.mu.Unlock()
	})

	go func() {
		created, err := e.api.CreateConnection(pending.WithToken(ctx, m.Token), e.projectID, &conn)
		if err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.mu.Lock()
		if created.ID != tempID {
			delete(e.connections, tempID)
		}
		e.connections[created.ID] = *created
		e.mu.Unlock()
		e.queue.Confirm(m.Token)
	}()
	return m, nil
}

// DeleteConnection removes an edge optimistically.
func (e *Engine) DeleteConnection(ctx context.Context, connectionID string) (*pending.Mutation, error) {
	e.mu.Lock()
	prev, ok := e.connections[connectionID]
	if !ok {
		e.mu.Unlock()
		return nil, &ValidationError{Reason: fmt.Sprintf("connection %s does not exist", connectionID)}
	}
	delete(e.connections, connectionID)
	e.mu.Unlock()

	m := e.queue.Enqueue(pending.KindDelete, pending.EntityConnection, connectionID, func() {
		e.mu.Lock()
		e.connections[connectionID] = prev
		e.mu.Unlock()
	})

	go func() {
		if err := e.api.DeleteConnection(pending.WithToken(ctx, m.Token), e.projectID, connectionID); err != nil {
			e.queue.Fail(m.Token, err)
			return
		}
		e.queue.Confirm(m.Token)
	}()
	return m, nil
}

// adoptServerTask swaps a client-temporary task ID for the canonical
// server entity, remapping any connections drawn against the temp ID.
func (e *Engine) adoptServerTask(tempID string, created *board.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if created.ID != tempID {
		delete(e.tasks, tempID)
		for id, c := range e.connections {
			if c.FromID == tempID {
				c.FromID = created.ID
				e.connections[id] = c
			}
			if c.ToID == tempID {
				c.ToID = created.ID
				e.connections[id] = c
			}
		}
	}
	e.tasks[created.ID] = copyTask(*created)
}

// adoptServerGroup swaps a client-temporary group ID for the canonical
// server entity, remapping member tasks.
func (e *Engine) adoptServerGroup(tempID string, created *board.Group) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if created.ID != tempID {
		delete(e.groups, tempID)
		for id, t := range e.tasks {
			if t.GroupID == tempID {
				t.GroupID = created.ID
				e.tasks[id] = t
			}
		}
	}
	e.groups[created.ID] = *created
}
