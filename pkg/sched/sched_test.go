package sched

import (
	"testing"

	"gotest.tools/v3/assert"
)

// fakeTask is a minimal Schedulable for exercising the ready-queue
// ordering without pulling in pkg/kernel.
type fakeTask struct {
	name           string
	stride, pass   uint64
	status         int
	resume         chan struct{}
	dispatchCount  int
}

func newFakeTask(name string, priority uint64) *fakeTask {
	return &fakeTask{name: name, pass: BigStrideForTest / priority, resume: make(chan struct{}, 1)}
}

const BigStrideForTest = 10_000

func (f *fakeTask) GetStride() uint64      { return f.stride }
func (f *fakeTask) GetPass() uint64        { return f.pass }
func (f *fakeTask) AddStride(delta uint64) { f.stride += delta }
func (f *fakeTask) MarkReady()             { f.status = 0 }
func (f *fakeTask) MarkRunning()           { f.status = 1 }
func (f *fakeTask) MarkBlocked()           { f.status = 2 }
func (f *fakeTask) ResumeChan() chan struct{} { return f.resume }
func (f *fakeTask) OnDispatch(nowMs uint64)   { f.dispatchCount++ }

func TestFetchOrdersByStrideThenBreaksTiesByInsertion(t *testing.T) {
	s := New()
	a := newFakeTask("a", 10)
	b := newFakeTask("b", 10)
	s.Add(a)
	s.Add(b)

	first := s.Fetch().(*fakeTask)
	assert.Equal(t, first.name, "a")
	second := s.Fetch().(*fakeTask)
	assert.Equal(t, second.name, "b")
}

// Over many dispatch rounds, a task with twice the priority of another
// should be fetched roughly twice as often, since its pass (and so its
// per-turn stride growth) is half as large.
func TestHigherPriorityDispatchedMoreOften(t *testing.T) {
	s := New()
	fast := newFakeTask("fast", 20) // pass = 500
	slow := newFakeTask("slow", 10) // pass = 1000
	s.Add(fast)
	s.Add(slow)

	counts := map[string]int{}
	const rounds = 300
	for i := 0; i < rounds; i++ {
		picked := s.Fetch().(*fakeTask)
		counts[picked.name]++
		s.Add(picked)
	}

	ratio := float64(counts["fast"]) / float64(counts["slow"])
	assert.Assert(t, ratio > 1.7 && ratio < 2.3, "want ~2x, got fast=%d slow=%d", counts["fast"], counts["slow"])
}

func TestRemoveTaskDropsAQueuedTaskWithoutDispatchingIt(t *testing.T) {
	s := New()
	a := newFakeTask("a", 10)
	b := newFakeTask("b", 10)
	s.Add(a)
	s.Add(b)
	s.RemoveTask(a)

	assert.Equal(t, s.Len(), 1)
	got := s.Fetch().(*fakeTask)
	assert.Equal(t, got.name, "b")
}
