package ksync_test

import (
	"testing"

	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/ksync"
	"github.com/rvcore/corekernel/pkg/sched"
	"gotest.tools/v3/assert"
)

// Each test boots a fresh InitProcess workload, forks however many
// threads it needs to exercise a primitive, and drives everything to
// completion with a single synchronous RunLoop call (it returns once
// every spawned task has finished). Because the scheduler is
// cooperative and single-core, a task must hand control back via
// Yield/Block before any other task's goroutine gets to run; a plain
// channel receive would deadlock the whole run, so waitFor below
// yield-polls instead of blocking on the channel directly. Failures
// inside forked workloads use t.Error (goroutine-safe); t.Fatal is
// reserved for the real test goroutine after RunLoop returns.

func waitFor(p *kernel.Task, ch <-chan struct{}) {
	for {
		select {
		case <-ch:
			return
		default:
			sched.Global.Yield(p)
		}
	}
}

func TestBlockingMutexHandsOffToWaiterFIFO(t *testing.T) {
	order := make([]int, 0, 2)
	childDone := make(chan struct{})
	done := make(chan struct{})

	init := kernel.NewInitProcess(0x3000_0000, func() {
		defer close(done)
		parent := kernel.Current()
		var m *ksync.BlockingMutex
		parent.Process.InsertMutex(func(id int) kernel.Resource {
			m = ksync.NewBlockingMutex(id)
			return m
		})

		m.Lock(parent) // parent takes it first, uncontended

		_, ok := parent.Process.Fork(func() {
			c := kernel.Current()
			m.Lock(c) // blocks until parent unlocks
			order = append(order, 1)
			m.Unlock(c)
			close(childDone)
			kernel.ExitCurrentAndRunNext(c, 0)
		})
		if !ok {
			t.Error("fork failed")
			return
		}

		sched.Global.Yield(parent) // let the child run up to its Lock and block
		order = append(order, 0)
		m.Unlock(parent)

		waitFor(parent, childDone)
		kernel.ExitCurrentAndRunNext(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.DeepEqual(t, order, []int{0, 1})
}

func TestSemaphoreDownBlocksUntilUp(t *testing.T) {
	done := make(chan struct{})
	childDone := make(chan struct{})
	var sawZero, sawOne bool

	init := kernel.NewInitProcess(0x3100_0000, func() {
		defer close(done)
		parent := kernel.Current()
		var s *ksync.Semaphore
		parent.Process.InsertSemaphore(func(id int) kernel.Resource {
			s = ksync.NewSemaphore(id, 0)
			return s
		})

		_, ok := parent.Process.Fork(func() {
			c := kernel.Current()
			sawZero = s.Count() <= 0
			s.Down(c)
			sawOne = true
			close(childDone)
			kernel.ExitCurrentAndRunNext(c, 0)
		})
		if !ok {
			t.Error("fork failed")
			return
		}

		sched.Global.Yield(parent) // let the child reach Down and block
		s.Up(parent)

		waitFor(parent, childDone)
		kernel.ExitCurrentAndRunNext(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Assert(t, sawZero)
	assert.Assert(t, sawOne)
}

func TestCondvarWaitReleasesAndReacquiresMutex(t *testing.T) {
	done := make(chan struct{})
	childDone := make(chan struct{})
	var woke bool

	init := kernel.NewInitProcess(0x3200_0000, func() {
		defer close(done)
		parent := kernel.Current()
		var m *ksync.BlockingMutex
		var cv *ksync.Condvar
		parent.Process.InsertMutex(func(id int) kernel.Resource {
			m = ksync.NewBlockingMutex(id)
			return m
		})
		parent.Process.InsertCondvar(func(id int) kernel.Resource {
			cv = ksync.NewCondvar(id)
			return cv
		})

		_, ok := parent.Process.Fork(func() {
			c := kernel.Current()
			m.Lock(c)
			cv.Wait(c, m) // releases m, blocks, reacquires m on wake
			woke = true
			m.Unlock(c)
			close(childDone)
			kernel.ExitCurrentAndRunNext(c, 0)
		})
		if !ok {
			t.Error("fork failed")
			return
		}

		sched.Global.Yield(parent) // let the child lock m and start Wait
		sched.Global.Yield(parent) // let Wait's internal Unlock/Block land

		// The condvar released the mutex back to holder-less, so the
		// parent can take it here to confirm Wait really let go of it.
		m.Lock(parent)
		m.Unlock(parent)
		cv.Signal()

		waitFor(parent, childDone)
		kernel.ExitCurrentAndRunNext(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Assert(t, woke)
}
