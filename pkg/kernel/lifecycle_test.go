package kernel_test

import (
	"testing"

	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/sched"
	"gotest.tools/v3/assert"
)

// Workload closures run on their own goroutine (pkg/sched.Spawn), so
// only t.Error/t.Errorf (documented goroutine-safe) are used inside
// them; t.Fatal is reserved for the real test goroutine, after
// RunLoop has returned.

func TestForkChildSeesZeroAndWaitpidReapsChild(t *testing.T) {
	var childReturnValue uint64 = 1 // sentinel != 0, overwritten by the child
	var childPid kernel.Pid
	var reapedPid int64
	done := make(chan struct{})

	init := kernel.NewInitProcess(0x2000_0000, func() {
		defer close(done)
		parent := kernel.Current()

		child, ok := parent.Process.Fork(func() {
			c := kernel.Current()
			childReturnValue = c.Res.TrapContext().ReturnValue()
			kernel.ExitCurrentAndRunNext(c, 42)
		})
		if !ok {
			t.Error("fork failed")
			return
		}
		childPid = child.Pid

		for {
			code, err := kernel.Waitpid(parent.Process, -1, parent.Process.MemorySet.Token(), 0)
			if err == nil {
				reapedPid = code
				break
			}
			sched.Global.Yield(parent)
		}
		kernel.ExitCurrentAndRunNext(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Equal(t, childReturnValue, uint64(0))
	assert.Equal(t, reapedPid, int64(childPid))
}

func TestWaitpidReturnsNotReadyBeforeChildExits(t *testing.T) {
	gate := make(chan struct{})
	done := make(chan struct{})
	var firstErr, secondErr error

	init := kernel.NewInitProcess(0x2100_0000, func() {
		defer close(done)
		parent := kernel.Current()

		child, ok := parent.Process.Fork(func() {
			<-gate
			kernel.ExitCurrentAndRunNext(kernel.Current(), 7)
		})
		if !ok {
			t.Error("fork failed")
			return
		}

		_, firstErr = kernel.Waitpid(parent.Process, child.Pid, parent.Process.MemorySet.Token(), 0)
		close(gate)
		for {
			_, secondErr = kernel.Waitpid(parent.Process, child.Pid, parent.Process.MemorySet.Token(), 0)
			if secondErr == nil {
				break
			}
			sched.Global.Yield(parent)
		}
		kernel.ExitCurrentAndRunNext(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Error(t, firstErr, "child exists but is not a zombie")
	assert.NilError(t, secondErr)
}
