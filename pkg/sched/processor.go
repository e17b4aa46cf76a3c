package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// This file is the cooperative driver that makes the data structures
// in sched.go actually run workloads. Spec §5 describes a single
// hardware core where exactly one task's kernel code executes at a
// time, and a task suspends only at schedule()/switch() invocations
// reached from yield, sleep, a sync-primitive wait, exit, or a
// waitpid that found no zombie. Real trap entry/exit assembly for
// this is out of scope (spec §1); here, each task is an ordinary Go
// goroutine and the "context switch" is a two-channel rendezvous: the
// scheduler's idle channel (the running task hands control back to
// the driver loop) and the task's own Resume channel (the driver
// loop hands control to exactly one ready task). Because the driver
// never proceeds past sending on Resume until it receives on idle,
// at most one task goroutine is ever unblocked from its Resume/idle
// wait at a time — this is the cooperative, single-core discipline,
// not real parallelism.

type currentHolder struct {
	mu sync.Mutex
	t  Schedulable
}

// Current returns whichever task the driver most recently dispatched,
// or nil if the driver loop isn't between Fetch and the next idle
// signal.
func (s *Scheduler) Current() Schedulable {
	s.cur.mu.Lock()
	defer s.cur.mu.Unlock()
	return s.cur.t
}

func (s *Scheduler) setCurrent(t Schedulable) {
	s.cur.mu.Lock()
	s.cur.t = t
	s.cur.mu.Unlock()
}

var bootTime = time.Now().UnixMilli()

// NowMs returns milliseconds since the scheduler was initialized, the
// clock TaskInfo.RecordDispatch and sys_sleep's timer deadlines read
// from.
func NowMs() uint64 {
	return uint64(time.Now().UnixMilli() - bootTime)
}

// Spawn registers t as ready and starts its workload goroutine. The
// goroutine blocks immediately on t's Resume channel until RunLoop
// dispatches it for the first time.
func (s *Scheduler) Spawn(t Schedulable, workload func()) {
	atomic.AddInt32(&s.live, 1)
	s.Add(t)
	go func() {
		<-t.ResumeChan()
		workload()
		s.finish(t)
	}()
}

// RunLoop drives the scheduler until every spawned task has finished,
// dispatching one Ready task at a time and waiting for it to yield,
// block, or finish before fetching the next. A task that is Blocked
// (asleep, or waiting on a sync primitive) holds no ready-tree slot,
// so an empty Fetch does not by itself mean the kernel is done: the
// live count also has to reach zero, since a blocked task still has a
// pending wakeup somewhere (the timer wheel, a mutex queue) that will
// re-Add it later.
func (s *Scheduler) RunLoop() {
	for atomic.LoadInt32(&s.live) > 0 {
		t := s.Fetch()
		if t == nil {
			time.Sleep(time.Millisecond)
			continue
		}
		s.setCurrent(t)
		t.OnDispatch(NowMs())
		s.log.Debug("dispatch")
		t.ResumeChan() <- struct{}{}
		<-s.idle
		s.setCurrent(nil)
	}
}

// Yield implements sys_yield's suspension point: re-enqueue the
// calling task as Ready, hand control back to the driver, and block
// until our next turn.
func (s *Scheduler) Yield(t Schedulable) {
	s.Add(t)
	s.idle <- struct{}{}
	<-t.ResumeChan()
}

// Block implements the suspension point used by sys_sleep and every
// sync-primitive wait: the caller has already enqueued t on whatever
// structure (timer wheel, mutex/semaphore/condvar wait queue) will
// eventually call WakeupTask; t's status is expected to already be
// set to Blocked by the caller. Hands control back to the driver and
// blocks until woken.
func (s *Scheduler) Block(t Schedulable) {
	s.idle <- struct{}{}
	<-t.ResumeChan()
}

// finish implements exit_current_and_run_next's final handoff: the
// task goroutine is about to return, so it never waits on Resume
// again.
func (s *Scheduler) finish(t Schedulable) {
	atomic.AddInt32(&s.live, -1)
	s.idle <- struct{}{}
}

// Live reports the number of spawned tasks that have not yet finished
// (Ready, Running, or Blocked), for callers that need to know whether
// RunLoop is still doing useful work.
func (s *Scheduler) Live() int32 {
	return atomic.LoadInt32(&s.live)
}
