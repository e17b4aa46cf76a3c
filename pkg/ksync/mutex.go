// Package ksync implements the synchronization primitives of spec
// §4.E: the spin mutex, the blocking mutex, the counting semaphore,
// and the condition variable, each with a FIFO wait queue. The
// Banker's-algorithm bookkeeping around these primitives (spec §4.F's
// hook points) is the syscall façade's job (pkg/syscalls), not this
// package's: these types only implement the primitive itself.
package ksync

import (
	"sync"
	"sync/atomic"

	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/sched"
)

// Locker is implemented by both mutex flavors, letting Condvar.Wait
// release and reacquire whichever kind guards it.
type Locker interface {
	kernel.Resource
	Lock(t *kernel.Task)
	Unlock(t *kernel.Task)
}

// SpinMutex busy-waits, yielding the CPU between attempts rather than
// blocking, per spec §4.E.
type SpinMutex struct {
	id     int
	locked int32
}

func NewSpinMutex(id int) *SpinMutex { return &SpinMutex{id: id} }

func (m *SpinMutex) ResourceID() int { return m.id }

// Lock test-and-sets the flag, yielding to the scheduler between
// failed attempts so other ready tasks get a turn.
func (m *SpinMutex) Lock(t *kernel.Task) {
	for !atomic.CompareAndSwapInt32(&m.locked, 0, 1) {
		sched.Global.Yield(t)
	}
}

// Unlock clears the flag.
func (m *SpinMutex) Unlock(t *kernel.Task) {
	atomic.StoreInt32(&m.locked, 0)
}

// IsLocked reports the current flag state, for tests.
func (m *SpinMutex) IsLocked() bool { return atomic.LoadInt32(&m.locked) == 1 }

// BlockingMutex is a holder-tracking mutex with a FIFO queue of blocked
// waiters; unlock hands ownership directly to the next waiter instead
// of making it race to reacquire.
type BlockingMutex struct {
	mu     sync.Mutex
	id     int
	holder *kernel.Task
	queue  []*kernel.Task
}

func NewBlockingMutex(id int) *BlockingMutex { return &BlockingMutex{id: id} }

func (m *BlockingMutex) ResourceID() int { return m.id }

// Lock implements spec §4.E: if unlocked, take it immediately;
// otherwise mark the caller Blocked, enqueue it, and hand control to
// the scheduler until woken with ownership already assigned.
func (m *BlockingMutex) Lock(t *kernel.Task) {
	m.mu.Lock()
	if m.holder == nil {
		m.holder = t
		m.mu.Unlock()
		return
	}
	t.Status = kernel.TaskBlocked
	m.queue = append(m.queue, t)
	m.mu.Unlock()
	sched.Global.Block(t)
}

// Unlock pops the next waiter and wakes it (transferring ownership to
// it directly), or clears the holder if the queue is empty.
func (m *BlockingMutex) Unlock(t *kernel.Task) {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.holder = nil
		m.mu.Unlock()
		return
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	m.holder = next
	m.mu.Unlock()
	sched.Global.WakeupTask(next)
}

// Holder returns the current owner, or nil if unlocked. For tests.
func (m *BlockingMutex) Holder() *kernel.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holder
}
