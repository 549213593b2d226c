package pending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awaitResult(t *testing.T, m *Mutation) Result {
	t.Helper()
	select {
	case res := <-m.Result():
		return res
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mutation result")
		return Result{}
	}
}

func TestEnqueueConfirm(t *testing.T) {
	q := NewQueue()

	rolledBack := false
	m := q.Enqueue(KindUpdate, EntityTask, "t1", func() { rolledBack = true })
	require.NotEmpty(t, m.Token)
	assert.Equal(t, StatusPending, m.Status)
	assert.True(t, q.HasPendingFor("t1"))
	assert.Equal(t, 1, q.Len())

	q.Confirm(m.Token)

	res := awaitResult(t, m)
	assert.NoError(t, res.Err)
	assert.Equal(t, StatusConfirmed, m.Status)
	assert.False(t, rolledBack, "confirm must not roll back the optimistic change")
	assert.False(t, q.HasPendingFor("t1"))
	assert.Equal(t, 0, q.Len())
}

func TestFailRollsBack(t *testing.T) {
	q := NewQueue()

	rolledBack := false
	m := q.Enqueue(KindCreate, EntityTask, "t1", func() { rolledBack = true })

	reason := errors.New("server said no")
	q.Fail(m.Token, reason)

	res := awaitResult(t, m)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, reason)
	assert.True(t, rolledBack)
	assert.Equal(t, StatusFailed, m.Status)
	assert.False(t, q.HasPendingFor("t1"))
}

func TestConfirmIdempotent(t *testing.T) {
	q := NewQueue()

	rolledBack := false
	m := q.Enqueue(KindUpdate, EntityTask, "t1", func() { rolledBack = true })

	q.Confirm(m.Token)
	// Duplicate socket echo of a REST-confirmed change.
	q.Confirm(m.Token)
	q.Fail(m.Token, errors.New("late failure"))

	res := awaitResult(t, m)
	assert.NoError(t, res.Err)
	assert.Equal(t, StatusConfirmed, m.Status)
	assert.False(t, rolledBack, "a resolved mutation must never roll back")

	// The duplicate resolutions must not have queued extra results.
	select {
	case <-m.Result():
		t.Fatal("result delivered more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConfirmUnknownTokenNoOp(t *testing.T) {
	q := NewQueue()
	q.Confirm("no-such-token")
	q.Fail("no-such-token", errors.New("x"))
	assert.Equal(t, 0, q.Len())
}

func TestConfirmEntityOldestFirst(t *testing.T) {
	q := NewQueue()

	first := q.Enqueue(KindUpdate, EntityTask, "t1", nil)
	second := q.Enqueue(KindUpdate, EntityTask, "t1", nil)

	q.ConfirmEntity("t1", KindUpdate)

	res := awaitResult(t, first)
	assert.NoError(t, res.Err)
	assert.Equal(t, StatusConfirmed, first.Status)
	assert.Equal(t, StatusPending, second.Status)
	assert.True(t, q.HasPendingFor("t1"), "second mutation still pending")

	q.ConfirmEntity("t1", KindUpdate)
	awaitResult(t, second)
	assert.False(t, q.HasPendingFor("t1"))
}

func TestConfirmEntityMatchesKind(t *testing.T) {
	q := NewQueue()

	update := q.Enqueue(KindUpdate, EntityTask, "t1", nil)
	del := q.Enqueue(KindDelete, EntityTask, "t1", nil)

	// A delete echo skips over the older pending update and resolves
	// only the matching delete.
	q.ConfirmEntity("t1", KindDelete)

	res := awaitResult(t, del)
	assert.NoError(t, res.Err)
	assert.Equal(t, StatusConfirmed, del.Status)
	assert.Equal(t, StatusPending, update.Status)
	assert.True(t, q.HasPendingFor("t1"))

	q.ConfirmEntity("t1", KindDelete)
	assert.Equal(t, StatusPending, update.Status, "mismatched kind is a no-op")
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, TokenFromContext(ctx))

	ctx = WithToken(ctx, "tok-1")
	assert.Equal(t, "tok-1", TokenFromContext(ctx))
}

func TestHasPendingFor(t *testing.T) {
	q := NewQueue()
	assert.False(t, q.HasPendingFor("t1"))

	m := q.Enqueue(KindDelete, EntityConnection, "c1", nil)
	assert.True(t, q.HasPendingFor("c1"))
	assert.False(t, q.HasPendingFor("t1"))

	q.Confirm(m.Token)
	awaitResult(t, m)
	assert.False(t, q.HasPendingFor("c1"))
}

func TestDiscardAll(t *testing.T) {
	q := NewQueue()

	rolledBack := false
	m1 := q.Enqueue(KindCreate, EntityTask, "t1", func() { rolledBack = true })
	m2 := q.Enqueue(KindUpdate, EntityGroup, "g1", nil)

	q.DiscardAll()

	for _, m := range []*Mutation{m1, m2} {
		res := awaitResult(t, m)
		assert.ErrorIs(t, res.Err, ErrDiscarded)
	}
	assert.False(t, rolledBack, "discard must not roll back, the board is being torn down")
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.HasPendingFor("t1"))
}
