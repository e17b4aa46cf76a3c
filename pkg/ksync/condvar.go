package ksync

import (
	"sync"

	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/sched"
)

// Condvar is a condition variable with a FIFO wait queue, per spec
// §4.E. Condvar ids may be reused from recycled empty slots in the
// owning PCB's condvar_list; this type itself is agnostic to that —
// slot reuse bookkeeping lives in pkg/kernel's process-level list.
type Condvar struct {
	mu    sync.Mutex
	id    int
	queue []*kernel.Task
}

func NewCondvar(id int) *Condvar { return &Condvar{id: id} }

func (c *Condvar) ResourceID() int { return c.id }

// Wait releases mutex, blocks the caller on this condvar's queue, and
// reacquires mutex before returning once woken, per spec §4.E.
func (c *Condvar) Wait(t *kernel.Task, mutex Locker) {
	mutex.Unlock(t)
	c.mu.Lock()
	t.Status = kernel.TaskBlocked
	c.queue = append(c.queue, t)
	c.mu.Unlock()
	sched.Global.Block(t)
	mutex.Lock(t)
}

// Signal wakes one waiter, FIFO, if any are queued.
func (c *Condvar) Signal() {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	next := c.queue[0]
	c.queue = c.queue[1:]
	c.mu.Unlock()
	sched.Global.WakeupTask(next)
}
