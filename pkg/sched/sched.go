// Package sched implements the stride scheduler and its ready queue
// (spec §4.D): a priority-weighted queue keyed by stride, where
// higher priority means a smaller pass and therefore more frequent
// selection.
//
// The scheduler is deliberately generic over what it schedules
// (Schedulable), rather than importing pkg/kernel.Task directly: the
// task/process model needs the scheduler (fork/exec/spawn all enqueue
// new threads) and the sync primitives need it too (they block and
// wake tasks), so if this package imported kernel, kernel or ksync
// importing sched back would cycle. Concrete *kernel.Task satisfies
// Schedulable without either package knowing about the other's
// internals beyond this interface.
package sched

import (
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	"github.com/rvcore/corekernel/pkg/klog"
)

// Schedulable is implemented by whatever a Scheduler dispatches.
type Schedulable interface {
	GetStride() uint64
	GetPass() uint64
	AddStride(delta uint64)
	MarkReady()
	MarkRunning()
	MarkBlocked()
	ResumeChan() chan struct{}
	OnDispatch(nowMs uint64)
}

// item is one ready-queue entry. The btree needs a strict total
// order; stride alone is not unique, so seq (an insertion sequence
// number) breaks ties exactly the way spec §4.D allows ("ties broken
// by arbitrary stable order") while keeping FIFO-ish stability.
type item struct {
	stride uint64
	seq    uint64
	task   Schedulable
}

func (a *item) Less(than btree.Item) bool {
	b := than.(*item)
	if a.stride != b.stride {
		return a.stride < b.stride
	}
	return a.seq < b.seq
}

// Scheduler is the kernel-wide stride-scheduled ready queue. Only
// Ready tasks reside in it (spec §4.D's state machine).
type Scheduler struct {
	mu   sync.Mutex
	tree *btree.BTree
	seq  uint64
	log  interface {
		Debug(args ...interface{})
		Debugf(format string, args ...interface{})
	}

	cur  currentHolder
	idle chan struct{}
	live int32 // count of spawned-but-not-finished tasks, incl. ones blocked outside the ready tree
}

// Global is the kernel-wide scheduler singleton, mirroring TASK_MANAGER.
var Global = New()

func New() *Scheduler {
	return &Scheduler{tree: btree.New(16), log: klog.For("sched"), idle: make(chan struct{}, 1)}
}

func (s *Scheduler) nextSeq() uint64 {
	return atomic.AddUint64(&s.seq, 1)
}

// Add inserts t into the ready queue at its current stride, per spec
// §4.D add(tcb).
func (s *Scheduler) Add(t Schedulable) {
	t.MarkReady()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(&item{stride: t.GetStride(), seq: s.nextSeq(), task: t})
}

// Fetch pops the minimum-stride ready task and post-increments its
// stride by its pass, per spec §4.D fetch(): "pops the minimum-stride
// ready thread and post-increments its stride by its pass."
func (s *Scheduler) Fetch() Schedulable {
	s.mu.Lock()
	defer s.mu.Unlock()
	min := s.tree.Min()
	if min == nil {
		return nil
	}
	s.tree.Delete(min)
	it := min.(*item)
	t := it.task
	t.AddStride(t.GetPass())
	t.MarkRunning()
	return t
}

// Len reports the number of ready tasks currently queued.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}

// WakeupTask sets t Ready and re-inserts it, per spec §4.D
// wakeup_task.
func (s *Scheduler) WakeupTask(t Schedulable) {
	s.Add(t)
}

// RemoveTask cancels a queued task, an O(n) heap-filter used when a
// blocked-for-exit thread must be pulled out of the ready queue
// before it is ever dispatched again (spec §4.D remove_task). No-op
// if t is not currently queued (e.g. it is Running or Blocked
// elsewhere).
func (s *Scheduler) RemoveTask(t Schedulable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *item
	s.tree.Ascend(func(i btree.Item) bool {
		cand := i.(*item)
		if cand.task == t {
			found = cand
			return false
		}
		return true
	})
	if found != nil {
		s.tree.Delete(found)
	}
}
