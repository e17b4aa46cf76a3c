// Package syscalls is the kernel/user boundary (spec §4.H, §6, §7):
// the dispatch-able operations an application invokes, each responsible
// for translating user pointers through pkg/mm, recording its own
// syscall-count entry (except Kill, which takes no calling task and
// records none), and converting internal errors into a canonical
// isize return code via pkg/kerrors. The Banker's-algorithm hook
// orchestration around mutex/semaphore acquisition and release also
// lives here rather than in pkg/ksync, since it is the façade — not
// the primitive — that knows a call is a "request" versus a "release".
package syscalls

import (
	"github.com/rvcore/corekernel/pkg/abi"
	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/klog"
	"github.com/rvcore/corekernel/pkg/mm"
	"github.com/rvcore/corekernel/pkg/sched"
	"github.com/rvcore/corekernel/pkg/timer"
)

// tokenOf is the one place a facade function reaches past *kernel.Task
// into pkg/mm; every other function below goes through it rather than
// reading t.Process.MemorySet directly.
func tokenOf(t *kernel.Task) mm.Token { return t.Process.MemorySet.Token() }

// Exit implements sys_exit. It never returns to the calling goroutine
// in the sense that matters: the workload closure that called this is
// expected to return immediately afterward (see
// kernel.ExitCurrentAndRunNext's doc).
func Exit(t *kernel.Task, code int32) {
	t.Info.RecordSyscall(abi.SyscallExit)
	kernel.ExitCurrentAndRunNext(t, code)
}

// Yield implements sys_yield: voluntarily give up the remainder of
// this turn.
func Yield(t *kernel.Task) int64 {
	t.Info.RecordSyscall(abi.SyscallYield)
	sched.Global.Yield(t)
	return kerrors.CodeOK
}

// GetPid implements sys_getpid.
func GetPid(t *kernel.Task) int64 {
	t.Info.RecordSyscall(abi.SyscallGetPid)
	return int64(t.Process.Pid)
}

// Fork implements sys_fork. childProgram is the child's continuation
// (see kernel.Process.Fork's doc for why this kernel takes it as an
// explicit closure instead of an elf image).
func Fork(t *kernel.Task, childProgram func()) int64 {
	t.Info.RecordSyscall(abi.SyscallFork)
	child, ok := t.Process.Fork(childProgram)
	if !ok {
		return kerrors.CodeInvalid
	}
	return int64(child.Pid)
}

// Exec implements sys_exec. newProgram stands in for the elf image
// exec(2) would normally load (spec §1: the loader is out of scope).
func Exec(t *kernel.Task, newProgram func(), argv []string) int64 {
	t.Info.RecordSyscall(abi.SyscallExec)
	return t.Process.Exec(t, newProgram, argv)
}

// Spawn implements sys_spawn: create a child directly from a program
// image without first cloning the caller's address space.
func Spawn(t *kernel.Task, childProgram func()) int64 {
	t.Info.RecordSyscall(abi.SyscallSpawn)
	child := t.Process.Spawn(childProgram)
	return int64(child.Pid)
}

// Waitpid implements sys_waitpid: pid == -1 means "any child".
// exitCodeOut == 0 means the caller passed a null pointer and no write
// is attempted, matching spec §4.C.
func Waitpid(t *kernel.Task, pid int, exitCodeOut mm.VirtAddr) int64 {
	t.Info.RecordSyscall(abi.SyscallWaitpid)
	code, err := kernel.Waitpid(t.Process, kernel.Pid(pid), tokenOf(t), exitCodeOut)
	if err != nil {
		klog.Task("syscalls", int(t.Process.Pid), t.Tid()).WithError(err).Debug("waitpid")
	}
	return code
}

// Kill implements sys_kill: deliver signal to pid's Signals bitset and
// its mailbox. Returns CodeInvalid if pid has no live process.
func Kill(pid int, signal uint32) int64 {
	p, ok := kernel.LookupProcess(kernel.Pid(pid))
	if !ok {
		return kerrors.CodeInvalid
	}
	p.Lock()
	p.Signals |= 1 << (signal % 32)
	p.Unlock()
	p.Mailbox.Post(signal)
	return kerrors.CodeOK
}

// SetPriority implements sys_set_priority.
func SetPriority(t *kernel.Task, priority int) int64 {
	t.Info.RecordSyscall(abi.SyscallSetPriority)
	if !t.SetPriority(priority) {
		return kerrors.CodeInvalid
	}
	return int64(priority)
}

// Sleep implements sys_sleep: suspend the caller for at least ms
// milliseconds, per the timer wheel (pkg/timer), with no cancel
// primitive (spec §5).
func Sleep(t *kernel.Task, ms uint64) int64 {
	t.Info.RecordSyscall(abi.SyscallSleep)
	t.MarkBlocked()
	timer.Global.Register(t, sched.NowMs(), ms)
	sched.Global.Block(t)
	return kerrors.CodeOK
}
