// Package pending tracks locally originated board mutations between their
// optimistic application and the server's verdict. Every enqueued mutation
// is eventually confirmed (REST response or socket echo) or failed (REST
// error, triggering rollback of the optimistic change). The queue never
// retries on its own; re-submitting is a caller decision, because an
// automatic retry risks duplicate server-side creation.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/finleyb/corkboard/pkg/board"
)

// ErrDiscarded is delivered to waiters when the queue is torn down, e.g.
// on board switch. Discarded mutations are neither confirmed nor retried.
var ErrDiscarded = errors.New("mutation discarded before server verdict")

// Kind is the type of change a mutation makes.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// EntityKind names the entity collection a mutation targets.
type EntityKind string

const (
	EntityTask       EntityKind = "task"
	EntityGroup      EntityKind = "group"
	EntityConnection EntityKind = "connection"
)

// Status is the lifecycle state of a mutation.
type Status string

const (
	// StatusPending means the optimistic change is applied locally and the
	// server has not yet acknowledged it.
	StatusPending Status = "pending"

	// StatusConfirmed means a matching REST response or socket echo arrived.
	StatusConfirmed Status = "confirmed"

	// StatusFailed means the REST call failed and the optimistic change was
	// rolled back.
	StatusFailed Status = "failed"
)

// Result is the server's verdict on one mutation. Err is nil on confirm.
type Result struct {
	Err error
}

// Mutation is one tracked local change. The rollback closure captures
// whatever is needed to undo the optimistic application.
type Mutation struct {
	Token      string     // Client-generated correlation token
	Kind       Kind       // create, update, or delete
	EntityKind EntityKind // task, group, or connection
	EntityID   string     // Target entity ID (real or client-temporary)
	Status     Status
	EnqueuedAt time.Time

	rollback func()
	done     chan Result
}

// Result returns a channel that delivers the server's verdict exactly once.
func (m *Mutation) Result() <-chan Result {
	return m.done
}

// Queue is the pending-mutation set for one open board.
// Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	byToken  map[string]*Mutation
	byEntity map[string][]string // entity ID → pending tokens, oldest first
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		byToken:  make(map[string]*Mutation),
		byEntity: make(map[string][]string),
	}
}

// Enqueue records a new pending mutation and returns it. The caller must
// have already applied the change optimistically; rollback undoes exactly
// that application and runs at most once, only on failure.
func (q *Queue) Enqueue(kind Kind, entityKind EntityKind, entityID string, rollback func()) *Mutation {
	m := &Mutation{
		Token:      board.NewID(),
		Kind:       kind,
		EntityKind: entityKind,
		EntityID:   entityID,
		Status:     StatusPending,
		EnqueuedAt: time.Now(),
		rollback:   rollback,
		done:       make(chan Result, 1),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.byToken[m.Token] = m
	q.byEntity[entityID] = append(q.byEntity[entityID], m.Token)
	return m
}

// Confirm marks the mutation identified by token as confirmed and removes
// it from the pending set. Idempotent: confirming an already-resolved or
// unknown token is a no-op, which absorbs duplicate socket echoes of a
// REST-originated change.
func (q *Queue) Confirm(token string) {
	q.mu.Lock()
	m, ok := q.byToken[token]
	if ok {
		q.resolveLocked(m, StatusConfirmed)
	}
	q.mu.Unlock()

	if ok {
		m.done <- Result{}
	}
}

// ConfirmEntity confirms the oldest pending mutation of the given kind
// targeting the entity ID, for echoes that carry the server-assigned ID
// rather than the correlation token. The kind match keeps a foreign
// delete echo from swallowing a pending update on the same entity.
// No-op when nothing matches.
func (q *Queue) ConfirmEntity(entityID string, kind Kind) {
	q.mu.Lock()
	var m *Mutation
	for _, token := range q.byEntity[entityID] {
		if cand := q.byToken[token]; cand != nil && cand.Kind == kind {
			m = cand
			break
		}
	}
	if m != nil {
		q.resolveLocked(m, StatusConfirmed)
	}
	q.mu.Unlock()

	if m != nil {
		m.done <- Result{}
	}
}

// Fail marks the mutation failed, rolls back its optimistic change, and
// surfaces the reason to the waiter. Unknown or resolved tokens are no-ops.
func (q *Queue) Fail(token string, reason error) {
	q.mu.Lock()
	m, ok := q.byToken[token]
	if ok {
		q.resolveLocked(m, StatusFailed)
	}
	q.mu.Unlock()

	if !ok {
		return
	}
	if m.rollback != nil {
		m.rollback()
	}
	if reason == nil {
		reason = fmt.Errorf("mutation %s failed", token)
	}
	m.done <- Result{Err: reason}
}

// HasPendingFor reports whether any pending mutation targets the entity.
// The engine uses this to let the local edit win over inbound socket
// deltas until the server acknowledges it.
func (q *Queue) HasPendingFor(entityID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byEntity[entityID]) > 0
}

// Len returns the number of pending mutations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byToken)
}

// DiscardAll drops every pending mutation without rollback or retry, used
// when switching boards. Waiters receive ErrDiscarded.
func (q *Queue) DiscardAll() {
	q.mu.Lock()
	dropped := make([]*Mutation, 0, len(q.byToken))
	for _, m := range q.byToken {
		dropped = append(dropped, m)
	}
	q.byToken = make(map[string]*Mutation)
	q.byEntity = make(map[string][]string)
	q.mu.Unlock()

	for _, m := range dropped {
		m.Status = StatusFailed
		m.done <- Result{Err: ErrDiscarded}
	}
}

type tokenKey struct{}

// WithToken attaches a mutation's correlation token to the context carried
// by its REST dispatch, so the transport can transmit it and the server
// can echo it back on the socket.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the correlation token attached by WithToken,
// or "" when the context carries none.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// resolveLocked removes the mutation from both indexes. Caller holds q.mu.
func (q *Queue) resolveLocked(m *Mutation, status Status) {
	m.Status = status
	delete(q.byToken, m.Token)

	tokens := q.byEntity[m.EntityID]
	for i, t := range tokens {
		if t == m.Token {
			tokens = append(tokens[:i], tokens[i+1:]...)
			break
		}
	}
	if len(tokens) == 0 {
		delete(q.byEntity, m.EntityID)
	} else {
		q.byEntity[m.EntityID] = tokens
	}
}
