// Package timer backs sys_sleep: it registers (deadline, task) pairs
// and wakes the task once its deadline passes. There is no cancel
// primitive (spec §5): a sleeping task always eventually resumes.
package timer

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rvcore/corekernel/pkg/klog"
	"github.com/rvcore/corekernel/pkg/sched"
)

type entry struct {
	deadlineMs uint64
	task       sched.Schedulable
}

// Wheel is the kernel-wide sleeper registry.
type Wheel struct {
	mu      sync.Mutex
	entries []entry
}

// Global is the kernel-wide timer wheel singleton.
var Global = &Wheel{}

// Register arranges for t to be woken once nowMs+durationMs has
// passed, implementing sys_sleep(ms)'s "(now+ms, tcb)" registration.
// The caller is responsible for having already marked t Blocked and
// for handing control back to the scheduler right after registering.
func (w *Wheel) Register(t sched.Schedulable, nowMs, durationMs uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry{deadlineMs: nowMs + durationMs, task: t})
}

// Tick wakes every sleeper whose deadline is <= nowMs and returns how
// many were woken.
func (w *Wheel) Tick(nowMs uint64) int {
	w.mu.Lock()
	var expired []sched.Schedulable
	remaining := w.entries[:0]
	for _, e := range w.entries {
		if e.deadlineMs <= nowMs {
			expired = append(expired, e.task)
		} else {
			remaining = append(remaining, e)
		}
	}
	w.entries = remaining
	w.mu.Unlock()

	for _, t := range expired {
		sched.Global.WakeupTask(t)
	}
	return len(expired)
}

func (w *Wheel) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Run polls the wheel until stop is closed. It backs off its poll
// interval exponentially while idle (no sleepers registered) and
// resets to the minimum interval the moment a sleeper shows up again,
// so an idle kernel doesn't spin a tight polling loop.
func (w *Wheel) Run(stop <-chan struct{}) {
	log := klog.For("timer")
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 0 // never stop retrying on its own

	interval := b.NextBackOff()
	for {
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}
		woken := w.Tick(sched.NowMs())
		if woken > 0 {
			log.Debugf("woke %d sleeper(s)", woken)
		}
		if w.pending() == 0 {
			interval = b.NextBackOff()
		} else {
			b.Reset()
			interval = b.InitialInterval
		}
	}
}
