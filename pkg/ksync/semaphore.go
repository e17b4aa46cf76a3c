package ksync

import (
	"sync"

	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/sched"
)

// Semaphore is a counting semaphore with a FIFO wait queue, per spec
// §4.E.
type Semaphore struct {
	mu    sync.Mutex
	id    int
	count int
	queue []*kernel.Task
}

func NewSemaphore(id, initial int) *Semaphore {
	return &Semaphore{id: id, count: initial}
}

func (s *Semaphore) ResourceID() int { return s.id }

// Down decrements the counter; if it goes negative, blocks and
// enqueues the caller.
func (s *Semaphore) Down(t *kernel.Task) {
	s.mu.Lock()
	s.count--
	if s.count < 0 {
		t.Status = kernel.TaskBlocked
		s.queue = append(s.queue, t)
		s.mu.Unlock()
		sched.Global.Block(t)
		return
	}
	s.mu.Unlock()
}

// Up increments the counter; if it is still <= 0 after incrementing
// (it was negative before), dequeues and wakes one waiter.
func (s *Semaphore) Up(t *kernel.Task) {
	s.mu.Lock()
	s.count++
	if s.count <= 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		sched.Global.WakeupTask(next)
		return
	}
	s.mu.Unlock()
}

// Count returns the current counter value, for tests.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
