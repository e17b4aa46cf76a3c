package kernel

import (
	"fmt"

	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/klog"
	"github.com/rvcore/corekernel/pkg/mm"
	"github.com/rvcore/corekernel/pkg/sched"
)

// exitNotify is the mailbox tag posted to a parent process when one of
// its children exits — the "wake any waiter" step of
// exit_current_and_run_next (spec §4.C). This kernel's sys_waitpid
// never blocks (a no-zombie-yet call returns CodeNotReady and expects
// the caller to retry, per spec §7), so there is no wait queue to
// signal here; as DESIGN.md records, the step posts to the
// supplemented mailbox instead of being a no-op.
const exitNotify uint32 = 0

// Fork implements fork() (spec §4.C): clone the caller's address
// space, duplicate its trap context into a brand-new single-threaded
// child with x10 forced to 0, link the child into the caller's
// children list, and schedule it. There is no ELF loader in this
// kernel (out of scope per spec §1), so childProgram stands in
// directly for "the same program, continuing from the fork() return
// point" — the caller supplies it rather than the kernel deriving it
// from a copied instruction stream.
func (p *Process) Fork(childProgram func()) (*Process, bool) {
	p.Lock()
	parentMain := p.Tasks[0]
	ms, ok := p.MemorySet.Fork()
	if !ok {
		p.Unlock()
		return nil, false
	}
	parentTrap := *parentMain.Res.TrapContext()
	p.Unlock()

	child := &Process{
		Pid:       allocPid(),
		MemorySet: ms,
		Parent:    p,
		Mailbox:   newMailbox(),
	}
	child.refCount = 1 // pid2proc ownership

	childMain := NewTask(child, ustackBaseForProc)
	*childMain.Res.TrapContext() = parentTrap
	childMain.Res.TrapContext().SetReturnValue(0)
	child.Tasks = append(child.Tasks, childMain)

	registerProcess(child)

	p.Lock()
	p.Children = append(p.Children, child.IncRef()) // children-list ownership
	p.Unlock()

	sched.Global.Spawn(childMain, childProgram)

	klog.For("proc").WithField("pid", int(child.Pid)).WithField("parent", int(p.Pid)).Info("fork")
	return child, true
}

// Exec implements exec(elf_bytes, argv) (spec §4.C): discard the
// calling process's address space and every thread but the caller,
// replace it with a fresh address space, and hand argc back through
// x10. There is no ELF loader here (out of scope); newProgram is the
// new program image itself, supplied directly in place of elf_bytes.
// Exec never returns to the caller's old control flow on success —
// newProgram runs in its place before this call returns, mirroring
// execve's "does not return" semantics for a caller that behaves and
// returns immediately afterward.
func (p *Process) Exec(caller *Task, newProgram func(), argv []string) int64 {
	p.Lock()
	for _, t := range p.Tasks {
		if t == nil || t == caller || t.Res == nil {
			continue
		}
		t.Res.dealloc(p)
		t.Res = nil
	}
	p.Tasks = []*Task{caller}

	p.MemorySet = mm.NewMemorySet()
	p.tids = tidAllocator{}
	caller.Res = newTaskUserRes(p, ustackBaseForProc)
	caller.Stride, caller.Pass = 0, BigStride/uint64(caller.Priority)

	argc := int64(len(argv))
	caller.Res.TrapContext().SetReturnValue(uint64(argc))
	p.Unlock()

	klog.For("proc").WithField("pid", int(p.Pid)).WithField("argc", argc).Info("exec")
	newProgram()
	return argc
}

// Spawn implements spawn(elf_bytes) (spec §4.C): build a brand-new
// child process directly from a program image, without cloning the
// caller's address space first the way Fork does. The measurable
// difference spec §8 exercises is that Spawn never touches the
// frame allocator on the parent's behalf — Fork's MemorySet.Fork does,
// Spawn's mm.NewMemorySet does not.
func (p *Process) Spawn(childProgram func()) *Process {
	child := &Process{
		Pid:       allocPid(),
		MemorySet: mm.NewMemorySet(),
		Parent:    p,
		Mailbox:   newMailbox(),
	}
	child.refCount = 1

	childMain := NewTask(child, ustackBaseForProc)
	child.Tasks = append(child.Tasks, childMain)

	registerProcess(child)

	p.Lock()
	p.Children = append(p.Children, child.IncRef())
	p.Unlock()

	sched.Global.Spawn(childMain, childProgram)

	klog.For("proc").WithField("pid", int(child.Pid)).WithField("parent", int(p.Pid)).Info("spawn")
	return child
}

// Waitpid implements waitpid(pid, out*) (spec §4.C, §7). pid == -1
// means "any child". It returns (CodeInvalid, err) if no child
// matches pid at all, (CodeNotReady, err) if a match exists but none
// is a zombie yet (this kernel's sys_waitpid never blocks — the caller
// is expected to retry), or the reaped child's pid on success.
func Waitpid(parent *Process, pid Pid, tok mm.Token, exitCodeOut mm.VirtAddr) (int64, error) {
	parent.Lock()
	if parent.findChildLocked(pid, false) == -1 {
		parent.Unlock()
		return kerrors.CodeInvalid, kerrors.ErrNotFound
	}
	zIdx := parent.findChildLocked(pid, true)
	if zIdx == -1 {
		parent.Unlock()
		return kerrors.CodeNotReady, kerrors.ErrNotZombie
	}
	child := parent.Children[zIdx]
	parent.Children = append(parent.Children[:zIdx], parent.Children[zIdx+1:]...)
	parent.Unlock()

	removeProcess(child.Pid)
	child.DecRef() // pid2proc ownership dropped; only this local handle remains

	if got := child.StrongCount(); got != 1 {
		panic(fmt.Sprintf("kernel: waitpid: pid %d strong_count == %d, want 1 before reap", child.Pid, got))
	}

	exitCode := child.ExitCode
	if exitCodeOut != 0 {
		buf := []byte{byte(exitCode), byte(exitCode >> 8), byte(exitCode >> 16), byte(exitCode >> 24)}
		if !mm.WriteStruct(tok, exitCodeOut, buf) {
			return kerrors.CodeInvalid, kerrors.ErrNotFound
		}
	}
	return int64(child.Pid), nil
}

// ExitCurrentAndRunNext implements exit_current_and_run_next(code)
// (spec §4.C). This kernel's sys_exit always terminates the calling
// thread's whole process, zombie-ing every sibling thread in the same
// step ("released in exit_current_and_run_next after zombieing all
// siblings", spec §3's Threads note) rather than supporting a
// separate thread-exit/process-exit split. Live children are
// reparented to InitProcess; when the exiting process is InitProcess
// itself, its remaining children are dropped from its list. Never returns in the sense that matters:
// the caller's workload closure is expected to return immediately
// after invoking this, ending its goroutine.
func ExitCurrentAndRunNext(exiting *Task, code int32) {
	p := exiting.Process
	p.Lock()
	for _, sib := range p.Tasks {
		if sib == nil {
			continue
		}
		sib.ExitCode = code
		sib.MarkBlocked()
		if sib != exiting {
			sched.Global.RemoveTask(sib)
		}
		if sib.Res != nil {
			sib.Res.dealloc(p)
			sib.Res = nil
		}
	}
	p.IsZombie = true
	p.ExitCode = code

	for _, c := range p.Children {
		c.Lock()
		c.Parent = InitProcess
		c.Unlock()
	}
	if len(p.Children) > 0 && InitProcess != nil && InitProcess != p {
		InitProcess.Lock()
		InitProcess.Children = append(InitProcess.Children, p.Children...)
		InitProcess.Unlock()
	}
	p.Children = nil

	parent := p.Parent
	p.Unlock()

	if parent != nil {
		parent.Mailbox.Post(exitNotify)
	}

	klog.For("proc").WithField("pid", int(p.Pid)).WithField("code", code).Info("process exited")
}
