package syscalls

import (
	"github.com/rvcore/corekernel/pkg/abi"
	"github.com/rvcore/corekernel/pkg/deadlock"
	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/ksync"
)

// EnableDeadlockDetect implements sys_enable_deadlock_detect (spec
// §4.F): detection can only be (re)armed while both sync-object lists
// are still empty, since a detector created later would never have
// seen resources that already exist.
func EnableDeadlockDetect(t *kernel.Task, enable bool) int64 {
	t.Info.RecordSyscall(abi.SyscallEnableDeadlockCheck)
	p := t.Process
	p.Lock()
	defer p.Unlock()
	if enable {
		if len(p.MutexList) > 0 || len(p.SemaphoreList) > 0 {
			return kerrors.Code(kerrors.ErrSyncListNotEmpty)
		}
		p.DeadlockMutex = deadlock.New()
		p.DeadlockSem = deadlock.New()
	}
	p.DetectEnabled = enable
	return kerrors.CodeOK
}

// MutexCreate implements sys_mutex_create(blocking): blocking selects
// ksync.BlockingMutex over ksync.SpinMutex.
func MutexCreate(t *kernel.Task, blocking bool) int64 {
	t.Info.RecordSyscall(abi.SyscallMutexCreate)
	p := t.Process
	id := p.InsertMutex(func(id int) kernel.Resource {
		if blocking {
			return ksync.NewBlockingMutex(id)
		}
		return ksync.NewSpinMutex(id)
	})
	if p.DetectEnabled {
		p.DeadlockMutex.AddResource(1)
	}
	return int64(id)
}

func mutexAt(p *kernel.Process, id int) (ksync.Locker, bool) {
	p.Lock()
	defer p.Unlock()
	if id < 0 || id >= len(p.MutexList) || p.MutexList[id] == nil {
		return nil, false
	}
	m, ok := p.MutexList[id].(ksync.Locker)
	return m, ok
}

// MutexLock implements sys_mutex_lock, running the Banker's-algorithm
// request hook before ever calling into the primitive itself: an
// unsafe request never blocks, it is refused outright with
// CodeDeadlock (spec §4.F).
func MutexLock(t *kernel.Task, id int) int64 {
	t.Info.RecordSyscall(abi.SyscallMutexLock)
	p := t.Process
	m, ok := mutexAt(p, id)
	if !ok {
		return kerrors.CodeInvalid
	}
	tid := t.Tid()
	if p.DetectEnabled {
		if p.DeadlockMutex.RequestWouldDeadlock(tid, id) {
			return kerrors.CodeDeadlock
		}
	}
	m.Lock(t)
	if p.DetectEnabled {
		p.DeadlockMutex.CommitAcquire(tid, id)
	}
	return kerrors.CodeOK
}

// MutexUnlock implements sys_mutex_unlock.
func MutexUnlock(t *kernel.Task, id int) int64 {
	t.Info.RecordSyscall(abi.SyscallMutexUnlock)
	p := t.Process
	m, ok := mutexAt(p, id)
	if !ok {
		return kerrors.CodeInvalid
	}
	m.Unlock(t)
	if p.DetectEnabled {
		p.DeadlockMutex.Release(t.Tid(), id)
	}
	return kerrors.CodeOK
}

// SemaphoreCreate implements sys_semaphore_create(initial).
func SemaphoreCreate(t *kernel.Task, initial int) int64 {
	t.Info.RecordSyscall(abi.SyscallSemaphoreCreate)
	p := t.Process
	id := p.InsertSemaphore(func(id int) kernel.Resource {
		return ksync.NewSemaphore(id, initial)
	})
	if p.DetectEnabled {
		p.DeadlockSem.AddResource(uint32(initial))
	}
	return int64(id)
}

func semaphoreAt(p *kernel.Process, id int) (*ksync.Semaphore, bool) {
	p.Lock()
	defer p.Unlock()
	if id < 0 || id >= len(p.SemaphoreList) || p.SemaphoreList[id] == nil {
		return nil, false
	}
	s, ok := p.SemaphoreList[id].(*ksync.Semaphore)
	return s, ok
}

// SemaphoreUp implements sys_semaphore_up.
func SemaphoreUp(t *kernel.Task, id int) int64 {
	t.Info.RecordSyscall(abi.SyscallSemaphoreUp)
	p := t.Process
	s, ok := semaphoreAt(p, id)
	if !ok {
		return kerrors.CodeInvalid
	}
	s.Up(t)
	if p.DetectEnabled {
		p.DeadlockSem.Release(t.Tid(), id)
	}
	return kerrors.CodeOK
}

// SemaphoreDown implements sys_semaphore_down, with the same
// request-before-block Banker's hook as MutexLock.
func SemaphoreDown(t *kernel.Task, id int) int64 {
	t.Info.RecordSyscall(abi.SyscallSemaphoreDown)
	p := t.Process
	s, ok := semaphoreAt(p, id)
	if !ok {
		return kerrors.CodeInvalid
	}
	tid := t.Tid()
	if p.DetectEnabled {
		if p.DeadlockSem.RequestWouldDeadlock(tid, id) {
			return kerrors.CodeDeadlock
		}
	}
	s.Down(t)
	if p.DetectEnabled {
		p.DeadlockSem.CommitAcquire(tid, id)
	}
	return kerrors.CodeOK
}

// CondvarCreate implements sys_condvar_create. Condvars are not
// covered by the Banker's algorithm (spec §4.F only names mutexes and
// semaphores), so there is no detector bookkeeping here.
func CondvarCreate(t *kernel.Task) int64 {
	t.Info.RecordSyscall(abi.SyscallCondvarCreate)
	id := t.Process.InsertCondvar(func(id int) kernel.Resource {
		return ksync.NewCondvar(id)
	})
	return int64(id)
}

func condvarAt(p *kernel.Process, id int) (*ksync.Condvar, bool) {
	p.Lock()
	defer p.Unlock()
	if id < 0 || id >= len(p.CondvarList) || p.CondvarList[id] == nil {
		return nil, false
	}
	c, ok := p.CondvarList[id].(*ksync.Condvar)
	return c, ok
}

// CondvarSignal implements sys_condvar_signal.
func CondvarSignal(t *kernel.Task, id int) int64 {
	t.Info.RecordSyscall(abi.SyscallCondvarSignal)
	c, ok := condvarAt(t.Process, id)
	if !ok {
		return kerrors.CodeInvalid
	}
	c.Signal()
	return kerrors.CodeOK
}

// CondvarWait implements sys_condvar_wait(id, mutex_id).
func CondvarWait(t *kernel.Task, id, mutexID int) int64 {
	t.Info.RecordSyscall(abi.SyscallCondvarWait)
	c, ok := condvarAt(t.Process, id)
	if !ok {
		return kerrors.CodeInvalid
	}
	m, ok := mutexAt(t.Process, mutexID)
	if !ok {
		return kerrors.CodeInvalid
	}
	c.Wait(t, m)
	return kerrors.CodeOK
}
