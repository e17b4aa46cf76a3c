package deadlock

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestSingleInstanceResourceAllowsOneHolder(t *testing.T) {
	d := New()
	id := d.AddResource(1)

	assert.Assert(t, !d.RequestWouldDeadlock(0, id))
	d.CommitAcquire(0, id)
	assert.DeepEqual(t, d.Available(), []uint32{0})

	d.Release(0, id)
	assert.DeepEqual(t, d.Available(), []uint32{1})
}

// Classic circular-wait scenario: two tasks each hold one of two
// single-instance resources and then request the other's.
func TestCircularWaitIsDetected(t *testing.T) {
	d := New()
	m1 := d.AddResource(1)
	m2 := d.AddResource(1)

	assert.Assert(t, !d.RequestWouldDeadlock(0, m1))
	d.CommitAcquire(0, m1)
	assert.Assert(t, !d.RequestWouldDeadlock(1, m2))
	d.CommitAcquire(1, m2)

	// task 0 now asks for m2 (held by task 1); this alone isn't unsafe
	// yet since task 1 could still finish and release m2.
	assert.Assert(t, !d.RequestWouldDeadlock(0, m2))

	// task 1 asks for m1 (held by task 0): with both requests
	// outstanding neither task's need fits the available vector, so
	// the algorithm reports this one unsafe before it is ever granted.
	assert.Assert(t, d.RequestWouldDeadlock(1, m1))
}

func TestSemaphoreWithSpareCapacityStaysSafe(t *testing.T) {
	d := New()
	id := d.AddResource(2)

	assert.Assert(t, !d.RequestWouldDeadlock(0, id))
	d.CommitAcquire(0, id)
	assert.Assert(t, !d.RequestWouldDeadlock(1, id))
	d.CommitAcquire(1, id)
	assert.DeepEqual(t, d.Available(), []uint32{0})
}
