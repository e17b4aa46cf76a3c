package syscalls_test

import (
	"encoding/binary"
	"testing"

	"github.com/rvcore/corekernel/pkg/abi"
	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/mm"
	"github.com/rvcore/corekernel/pkg/sched"
	"github.com/rvcore/corekernel/pkg/syscalls"
	"gotest.tools/v3/assert"
)

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

func TestMmapThenGetTimeWritesThroughSplitUserPointer(t *testing.T) {
	done := make(chan struct{})
	var mmapResult, timeResult int64

	init := kernel.NewInitProcess(0x4000_0000, func() {
		defer close(done)
		parent := kernel.Current()

		mmapResult = syscalls.Mmap(parent, mm.VirtAddr(0), 2*mm.PageSize, 0b011)
		ptr := mm.VirtAddr(mm.PageSize - 8) // straddles the two mapped pages' boundary
		timeResult = syscalls.GetTime(parent, ptr)

		syscalls.Exit(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Equal(t, mmapResult, kerrors.CodeOK)
	assert.Equal(t, timeResult, kerrors.CodeOK)
}

func TestWaitpidStateTransitions(t *testing.T) {
	done := make(chan struct{})
	gate := make(chan struct{})
	var beforeExit, afterExit, noSuchChild int64

	init := kernel.NewInitProcess(0x4100_0000, func() {
		defer close(done)
		parent := kernel.Current()

		child, ok := parent.Process.Fork(func() {
			<-gate
			syscalls.Exit(kernel.Current(), 9)
		})
		if !ok {
			t.Error("fork failed")
			return
		}

		beforeExit = syscalls.Waitpid(parent, int(child.Pid), 0)
		close(gate)
		for {
			afterExit = syscalls.Waitpid(parent, int(child.Pid), 0)
			if afterExit != kerrors.CodeNotReady {
				break
			}
			sched.Global.Yield(parent)
		}
		noSuchChild = syscalls.Waitpid(parent, int(child.Pid), 0)

		syscalls.Exit(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Equal(t, beforeExit, kerrors.CodeNotReady)
	assert.Assert(t, afterExit >= 0, "want a reaped pid, got %d", afterExit)
	assert.Equal(t, noSuchChild, kerrors.CodeInvalid)
}

// spawnSibling adds a second thread to p (mirroring what Fork does
// internally for a new thread, minus the address-space clone) so a
// test can exercise two threads sharing one process's mutex/semaphore
// lists without the separate-process boundary Fork/Spawn create.
func spawnSibling(p *kernel.Process, ustackBase uint64, workload func()) *kernel.Task {
	th := kernel.NewTask(p, ustackBase)
	p.Lock()
	p.Tasks = append(p.Tasks, th)
	p.Unlock()
	sched.Global.Spawn(th, workload)
	return th
}

// TestMutexLockReportsDeadlockInsteadOfBlocking builds the classic
// two-thread circular wait: parent holds m1 and (safely) blocks
// wanting m2; the sibling holds m2 and then asks for m1. That second
// request is the one the Banker's algorithm must refuse outright,
// since granting it would leave both threads permanently stuck.
func TestMutexLockReportsDeadlockInsteadOfBlocking(t *testing.T) {
	done := make(chan struct{})
	siblingHasM2 := make(chan struct{})
	parentBlockedOnM2 := make(chan struct{})
	var m1, m2 int64
	var firstGrant, siblingGrant, parentM2Result, siblingM1Result, siblingUnlockResult int64

	init := kernel.NewInitProcess(0x4200_0000, func() {
		defer close(done)
		parent := kernel.Current()
		syscalls.EnableDeadlockDetect(parent, true)
		m1 = syscalls.MutexCreate(parent, true)
		m2 = syscalls.MutexCreate(parent, true)

		firstGrant = syscalls.MutexLock(parent, int(m1))

		spawnSibling(parent.Process, 0x4200_0000, func() {
			sib := kernel.Current()
			siblingGrant = syscalls.MutexLock(sib, int(m2))
			close(siblingHasM2)
			waitFor(sib, parentBlockedOnM2)

			siblingM1Result = syscalls.MutexLock(sib, int(m1))
			siblingUnlockResult = syscalls.MutexUnlock(sib, int(m2))
		})
		waitFor(parent, siblingHasM2)

		close(parentBlockedOnM2) // tell the sibling to make its m1 request
		parentM2Result = syscalls.MutexLock(parent, int(m2)) // safe, genuinely blocks until the sibling unlocks m2

		syscalls.Exit(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Equal(t, firstGrant, kerrors.CodeOK)
	assert.Equal(t, siblingGrant, kerrors.CodeOK)
	assert.Equal(t, siblingM1Result, kerrors.CodeDeadlock)
	assert.Equal(t, siblingUnlockResult, kerrors.CodeOK)
	assert.Equal(t, parentM2Result, kerrors.CodeOK)
}

func TestTaskInfoRecordsSyscallCounts(t *testing.T) {
	done := make(chan struct{})
	var getpidCount, yieldCount uint32
	var readResult int64

	init := kernel.NewInitProcess(0x4300_0000, func() {
		defer close(done)
		parent := kernel.Current()

		syscalls.GetPid(parent)
		syscalls.GetPid(parent)
		syscalls.Yield(parent)

		ptr := mm.VirtAddr(mm.PageSize)
		syscalls.Mmap(parent, ptr, mm.PageSize, 0b011)
		readResult = syscalls.TaskInfo(parent, ptr)
		buf, ok := mm.ReadBytes(parent.Process.MemorySet.Token(), ptr, uint64(4+4*abi.MaxSyscallNum+8))
		if !ok {
			t.Error("task_info output not readable back")
		} else {
			syscallTimesOff := 4 + 4*int(abi.SyscallGetPid)
			getpidCount = binary.LittleEndian.Uint32(buf[syscallTimesOff : syscallTimesOff+4])
			yieldOff := 4 + 4*int(abi.SyscallYield)
			yieldCount = binary.LittleEndian.Uint32(buf[yieldOff : yieldOff+4])
		}

		syscalls.Exit(parent, 0)
	})
	kernel.InitProcess = init
	sched.Global.RunLoop()

	select {
	case <-done:
	default:
		t.Fatal("init workload never completed")
	}
	assert.Equal(t, readResult, kerrors.CodeOK)
	assert.Equal(t, getpidCount, uint32(2))
	assert.Equal(t, yieldCount, uint32(1))
}
