package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapgrove/mapsync/models"
)

func op(kind models.OperationKind, mapID string) models.SyncOperation {
	return models.SyncOperation{
		Kind:       kind,
		VaultID:    "v1",
		MapID:      mapID,
		EnqueuedAt: time.Now().UTC(),
	}
}

func TestQueue_Coalescing(t *testing.T) {
	q := NewOperationQueue()

	q.Enqueue(op(models.OpCreate, "m1"))
	q.Enqueue(op(models.OpUpdate, "m1"))
	q.Enqueue(op(models.OpUpdate, "m1"))

	assert.Equal(t, 1, q.Len())

	ready := q.DequeueReady(10, time.Now().UTC())
	require.Len(t, ready, 1)
	assert.Equal(t, models.OpUpdate, ready[0].Op.Kind)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_FirstEnqueueOrder(t *testing.T) {
	q := NewOperationQueue()

	q.Enqueue(op(models.OpCreate, "m1"))
	q.Enqueue(op(models.OpCreate, "m2"))
	// Coalescing keeps m1's original position.
	q.Enqueue(op(models.OpUpdate, "m1"))

	ready := q.DequeueReady(10, time.Now().UTC())
	require.Len(t, ready, 2)
	assert.Equal(t, "m1", ready[0].Op.MapID)
	assert.Equal(t, "m2", ready[1].Op.MapID)
}

func TestQueue_DequeueLimit(t *testing.T) {
	q := NewOperationQueue()

	q.Enqueue(op(models.OpCreate, "m1"))
	q.Enqueue(op(models.OpCreate, "m2"))
	q.Enqueue(op(models.OpCreate, "m3"))

	ready := q.DequeueReady(2, time.Now().UTC())
	assert.Len(t, ready, 2)
	assert.Equal(t, 1, q.Len())

	ready = q.DequeueReady(2, time.Now().UTC())
	require.Len(t, ready, 1)
	assert.Equal(t, "m3", ready[0].Op.MapID)
}

func TestQueue_HoldOffSkipsWithoutBlocking(t *testing.T) {
	q := NewOperationQueue()
	now := time.Now().UTC()

	q.Enqueue(op(models.OpUpdate, "m1"))
	failed := q.DequeueReady(10, now)
	require.Len(t, failed, 1)

	// m1 goes back with a hold-off; m2 arrives afterwards.
	q.Requeue(failed[0], now.Add(time.Minute))
	q.Enqueue(op(models.OpUpdate, "m2"))

	ready := q.DequeueReady(10, now)
	require.Len(t, ready, 1)
	assert.Equal(t, "m2", ready[0].Op.MapID)

	// Past the hold-off m1 becomes ready again, with the attempt recorded.
	ready = q.DequeueReady(10, now.Add(2*time.Minute))
	require.Len(t, ready, 1)
	assert.Equal(t, "m1", ready[0].Op.MapID)
	assert.Equal(t, 1, ready[0].Attempts)
}

func TestQueue_RequeueSupersededByNewerOp(t *testing.T) {
	q := NewOperationQueue()
	now := time.Now().UTC()

	q.Enqueue(op(models.OpUpdate, "m1"))
	inFlight := q.DequeueReady(10, now)
	require.Len(t, inFlight, 1)

	// A newer edit arrives while the old one is being transmitted.
	q.Enqueue(op(models.OpDelete, "m1"))
	q.Requeue(inFlight[0], now.Add(time.Second))

	require.Equal(t, 1, q.Len())
	ready := q.DequeueReady(10, now)
	require.Len(t, ready, 1)
	assert.Equal(t, models.OpDelete, ready[0].Op.Kind)
	assert.Equal(t, 0, ready[0].Attempts, "superseding op starts with fresh retry state")
}

func TestQueue_NotifySignalledOnEnqueue(t *testing.T) {
	q := NewOperationQueue()

	q.Enqueue(op(models.OpCreate, "m1"))

	select {
	case <-q.Notify():
	default:
		t.Fatal("expected notify signal after enqueue")
	}
}
