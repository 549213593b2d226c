// Package engine owns the authoritative in-memory state of one open board
// and reconciles its three input streams: the REST bootstrap, local
// optimistic mutation intents, and inbound socket deltas.
//
// Identity, not arrival order, is the tie-break key. Every entity is keyed
// by ID; an inbound delta for an entity with an unresolved local pending
// mutation is suppressed until that mutation is confirmed or rolled back,
// so an out-of-order echo of the client's own edit can never flicker the
// UI backwards. Deletions are terminal, and deleting a task prunes every
// connection touching it in the same state transition.
//
// All other components read snapshots or submit intents; nothing outside
// this package mutates the collections.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/finleyb/corkboard/internal/pending"
	"github.com/finleyb/corkboard/internal/socket"
	"github.com/finleyb/corkboard/pkg/board"
)

// API is the slice of the REST client the engine dispatches mutations
// through. Every create/update returns the canonical server entity.
type API interface {
	FetchBoard(ctx context.Context, projectID string) (*board.Snapshot, error)
	CreateTask(ctx context.Context, projectID string, t *board.Task) (*board.Task, error)
	UpdateTask(ctx context.Context, projectID string, t *board.Task) (*board.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID string) error
	CreateGroup(ctx context.Context, projectID string, g *board.Group) (*board.Group, error)
	UpdateGroup(ctx context.Context, projectID string, g *board.Group) (*board.Group, error)
	DeleteGroup(ctx context.Context, projectID, groupID string) error
	CreateConnection(ctx context.Context, projectID string, c *board.Connection) (*board.Connection, error)
	DeleteConnection(ctx context.Context, projectID, connectionID string) error
}

// Socket is the slice of the board socket channel the engine consumes.
type Socket interface {
	Events() <-chan *board.Delta
	Errors() <-chan error
	StateChanges() <-chan socket.ConnState
	Close() error
}

// Engine reconciles one board. Create with New, drive with Run, tear down
// with Close before opening another board.
type Engine struct {
	projectID string
	api       API
	sock      Socket
	queue     *pending.Queue
	log       *logrus.Entry

	mu          sync.Mutex
	tasks       map[string]board.Task
	groups      map[string]board.Group
	connections map[string]board.Connection
	members     map[string]board.Member
	groupBase   map[string]board.Group // last committed geometry per dragged group

	resyncInterval time.Duration

	observer func(*board.Delta)
}

// New creates an engine for one board. The socket channel may be nil for
// offline use (REST only); Run then has nothing to consume.
func New(projectID string, api API, sock Socket, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		projectID:      projectID,
		api:            api,
		sock:           sock,
		queue:          pending.NewQueue(),
		log:            logger.WithFields(logrus.Fields{"component": "engine", "project": projectID}),
		tasks:          make(map[string]board.Task),
		groups:         make(map[string]board.Group),
		connections:    make(map[string]board.Connection),
		members:        make(map[string]board.Member),
		groupBase:      make(map[string]board.Group),
		resyncInterval: 500 * time.Millisecond,
	}
}

// Pending returns the pending-sync queue, exposed for observation.
func (e *Engine) Pending() *pending.Queue {
	return e.queue
}

// Observe registers a callback invoked from Run for every applied inbound
// delta, after reconciliation. Set before calling Run; screens and the CLI
// use it to refresh their view.
func (e *Engine) Observe(fn func(*board.Delta)) {
	e.observer = fn
}

// Bootstrap replaces the board state wholesale with a REST snapshot.
// Called on board open and after every socket reopen, before any further
// deltas are trusted.
func (e *Engine) Bootstrap(snap *board.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tasks = make(map[string]board.Task, len(snap.Tasks))
	for _, t := range snap.Tasks {
		e.tasks[t.ID] = copyTask(t)
	}
	e.groups = make(map[string]board.Group, len(snap.Groups))
	for _, g := range snap.Groups {
		e.groups[g.ID] = g
	}
	e.connections = make(map[string]board.Connection, len(snap.Connections))
	for _, c := range snap.Connections {
		e.connections[c.ID] = c
	}
	e.members = make(map[string]board.Member, len(snap.Members))
	for _, m := range snap.Members {
		e.members[m.ID] = m
	}
	e.groupBase = make(map[string]board.Group)

	e.log.WithFields(logrus.Fields{
		"tasks":       len(snap.Tasks),
		"groups":      len(snap.Groups),
		"connections": len(snap.Connections),
	}).Info("board state replaced from snapshot")
}

// Snapshot returns a deep copy of the board state with deterministic
// (ID-sorted) ordering. Callers may retain and mutate it freely.
func (e *Engine) Snapshot() *board.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &board.Snapshot{
		ProjectID:   e.projectID,
		Tasks:       make([]board.Task, 0, len(e.tasks)),
		Groups:      make([]board.Group, 0, len(e.groups)),
		Connections: make([]board.Connection, 0, len(e.connections)),
		Members:     make([]board.Member, 0, len(e.members)),
	}
	for _, t := range e.tasks {
		snap.Tasks = append(snap.Tasks, copyTask(t))
	}
	for _, g := range e.groups {
		snap.Groups = append(snap.Groups, g)
	}
	for _, c := range e.connections {
		snap.Connections = append(snap.Connections, c)
	}
	for _, m := range e.members {
		snap.Members = append(snap.Members, m)
	}

	sort.Slice(snap.Tasks, func(i, j int) bool { return snap.Tasks[i].ID < snap.Tasks[j].ID })
	sort.Slice(snap.Groups, func(i, j int) bool { return snap.Groups[i].ID < snap.Groups[j].ID })
	sort.Slice(snap.Connections, func(i, j int) bool { return snap.Connections[i].ID < snap.Connections[j].ID })
	sort.Slice(snap.Members, func(i, j int) bool { return snap.Members[i].ID < snap.Members[j].ID })
	return snap
}

// Run consumes the socket channel until the context is cancelled or the
// channel closes. At every EventResync marker in the event stream it
// re-fetches the full board over REST before trusting the deltas that
// follow, because events missed while disconnected are not replayed.
func (e *Engine) Run(ctx context.Context) error {
	if e.sock == nil {
		return fmt.Errorf("engine has no socket channel")
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case state, ok := <-e.sock.StateChanges():
			if !ok {
				return nil
			}
			e.log.Infof("connection state: %s", state)

		case delta, ok := <-e.sock.Events():
			if !ok {
				return nil
			}
			if delta.Kind == board.EventResync {
				if err := e.resync(ctx); err != nil {
					e.log.Errorf("bootstrap fetch abandoned: %v", err)
				}
				continue
			}
			e.Apply(delta)
			if e.observer != nil {
				e.observer(delta)
			}

		case err, ok := <-e.sock.Errors():
			if !ok {
				return nil
			}
			e.log.Warnf("socket error: %v", err)
		}
	}
}

// resync replaces the board state from REST after the subscription
// (re)opens. No delta is consumed while it runs, so nothing is ever
// applied against pre-disconnect state. The fetch is retried with backoff
// until it succeeds or the context ends, because the outage that dropped
// the socket often takes the REST API down with it.
func (e *Engine) resync(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.resyncInterval
	bo.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		snap, err := e.api.FetchBoard(ctx, e.projectID)
		if err != nil {
			e.log.Warnf("bootstrap fetch failed, retrying: %v", err)
			return err
		}
		e.Bootstrap(snap)
		return nil
	}, backoff.WithContext(bo, ctx))
}

// Close tears the board session down: the socket channel first, then the
// pending queue, so no in-flight entry of the old board is confirmed or
// retried against the next one.
func (e *Engine) Close() error {
	var err error
	if e.sock != nil {
		err = e.sock.Close()
	}
	e.queue.DiscardAll()
	return err
}

// Apply reconciles one inbound socket delta into the board state.
//
// Echoes of this client's own mutations (matching correlation token or a
// pending mutation on the same entity ID) confirm or are suppressed; the
// local edit stays visible until acknowledged. Updates and deletes for
// unknown IDs are stale out-of-order deliveries and are dropped silently.
func (e *Engine) Apply(d *board.Delta) {
	if d.Token != "" {
		// Echo of our own mutation. Confirming by token is idempotent with
		// the REST response path; whichever arrives second is a no-op.
		e.queue.Confirm(d.Token)
	}

	switch d.Kind {
	case board.EventPresenceChanged:
		e.applyPresence(d.Presence)
		return
	case board.EventTaskDeleted, board.EventGroupDeleted, board.EventConnectionDeleted:
		// A delete echo without a token still resolves a pending local
		// delete of the same entity early. Safe even for a concurrent
		// foreign delete: the entity is gone either way.
		if d.Token == "" {
			e.queue.ConfirmEntity(d.EntityID, pending.KindDelete)
		}
		if d.Kind == board.EventTaskDeleted {
			e.deleteTaskLocked(d.EntityID)
		} else {
			e.applyDelete(d)
		}
		return
	}

	// Create/update kinds. A pending local mutation on the same entity
	// wins until the server acknowledges it.
	if e.queue.HasPendingFor(d.EntityID) {
		e.log.WithField("entity", d.EntityID).Debug("delta suppressed by pending local mutation")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch d.Kind {
	case board.EventTaskCreated:
		e.tasks[d.Task.ID] = copyTask(*d.Task)
	case board.EventTaskUpdated:
		if _, ok := e.tasks[d.Task.ID]; !ok {
			e.log.WithField("entity", d.Task.ID).Debug("stale task update ignored")
			return
		}
		e.tasks[d.Task.ID] = copyTask(*d.Task)
	case board.EventGroupCreated:
		e.groups[d.Group.ID] = *d.Group
	case board.EventGroupUpdated:
		if _, ok := e.groups[d.Group.ID]; !ok {
			e.log.WithField("entity", d.Group.ID).Debug("stale group update ignored")
			return
		}
		e.groups[d.Group.ID] = *d.Group
	case board.EventConnectionCreated, board.EventConnectionUpdated:
		// A connection must reference live tasks; a connection arriving
		// after its endpoint was deleted stays pruned.
		if _, ok := e.tasks[d.Connection.FromID]; !ok {
			return
		}
		if _, ok := e.tasks[d.Connection.ToID]; !ok {
			return
		}
		e.connections[d.Connection.ID] = *d.Connection
	}
}

// applyPresence flips a member's online flag. Unknown members are ignored;
// membership changes arrive via REST, not presence.
func (e *Engine) applyPresence(p *board.Presence) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.members[p.UserID]
	if !ok {
		return
	}
	m.IsOnline = p.IsOnline
	e.members[p.UserID] = m
}

// applyDelete removes a group or connection. Deletions are terminal and
// never suppressed: a recreated entity arrives under a new ID.
func (e *Engine) applyDelete(d *board.Delta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch d.Kind {
	case board.EventGroupDeleted:
		delete(e.groups, d.EntityID)
		delete(e.groupBase, d.EntityID)
	case board.EventConnectionDeleted:
		delete(e.connections, d.EntityID)
	}
}

// deleteTaskLocked removes a task and prunes every connection touching it
// in the same transition, so no dangling edge is ever visible.
func (e *Engine) deleteTaskLocked(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tasks, taskID)
	for id, c := range e.connections {
		if c.FromID == taskID || c.ToID == taskID {
			delete(e.connections, id)
		}
	}
}

// copyTask deep-copies a task, including its slices.
func copyTask(t board.Task) board.Task {
	out := t
	if t.Assignees != nil {
		out.Assignees = append([]string(nil), t.Assignees...)
	}
	if t.Attachments != nil {
		out.Attachments = append([]board.Attachment(nil), t.Attachments...)
	}
	if t.Comments != nil {
		out.Comments = append([]board.Comment(nil), t.Comments...)
	}
	return out
}
