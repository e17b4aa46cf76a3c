package kernel

import (
	"github.com/rvcore/corekernel/pkg/abi"
	"github.com/rvcore/corekernel/pkg/mm"
)

// BigStride is the stride-scheduling normalization constant: pass =
// BigStride / priority (spec §4.D).
const BigStride = 10_000

// TaskStatus mirrors abi.TaskStatus with the kernel-internal name
// used throughout this package's scheduling state machine.
type TaskStatus = abi.TaskStatus

const (
	TaskReady   = abi.StatusReady
	TaskRunning = abi.StatusRunning
	TaskBlocked = abi.StatusBlocked
)

// TrapContext is the saved user register file. x10 (Regs[10]) carries
// the syscall return value and fork's child-sees-zero value, per the
// glossary and spec §9's open question about the exit-code ABI.
type TrapContext struct {
	Regs [32]uint64
	Sepc uint64
}

// ReturnValue returns what a0/x10 currently holds.
func (tc *TrapContext) ReturnValue() uint64 { return tc.Regs[10] }

// SetReturnValue sets a0/x10, the register through which fork,
// syscalls, and exec's argc all communicate their result.
func (tc *TrapContext) SetReturnValue(v uint64) { tc.Regs[10] = v }

// TaskContext is the saved kernel-mode register set __switch swaps
// between tasks. This kernel never executes real assembly context
// switches (trap entry/exit is out of scope per spec §1); the field
// exists so the data model matches spec §3 and so tests can assert
// that a context was initialized for a freshly created thread.
type TaskContext struct {
	Ra    uint64
	Sp    uint64
	SRegs [12]uint64
}

// TaskInfo is per-task accounting: spec §3's TaskInfo plus the
// dispatch_count/last-dispatch bookkeeping original_source/task/info.rs
// keeps beyond what spec.md's distilled struct shows (SPEC_FULL §4.2).
type TaskInfo struct {
	FirstScheduleTimeMs uint64 // 0 means "not yet scheduled" (Option<non-zero>)
	SyscallTimes        map[uint32]uint32
	DispatchCount        uint32
	LastDispatchMs       uint64
}

func newTaskInfo() *TaskInfo {
	return &TaskInfo{SyscallTimes: make(map[uint32]uint32)}
}

// RecordSyscall bumps the per-syscall counter.
func (ti *TaskInfo) RecordSyscall(num uint32) {
	ti.SyscallTimes[num]++
}

// RecordDispatch sets first_schedule_time exactly once and always
// bumps the dispatch counters. Monotonicity (spec §3 invariant) holds
// because FirstScheduleTimeMs is only ever written here, and only
// when still zero.
func (ti *TaskInfo) RecordDispatch(nowMs uint64) {
	if ti.FirstScheduleTimeMs == 0 {
		ti.FirstScheduleTimeMs = nowMs
		if ti.FirstScheduleTimeMs == 0 {
			ti.FirstScheduleTimeMs = 1 // never regress to the "unset" sentinel
		}
	}
	ti.DispatchCount++
	ti.LastDispatchMs = nowMs
}

// TaskUserRes is a thread's user-space resources: its tid, user
// stack, and trap-context frame, all released together (and early,
// per spec §4.C exit) so the tid is free for reuse before reaping.
type TaskUserRes struct {
	Tid         Tid
	Process     *Process
	UstackBase  uint64
	trapCxPPN   mm.PhysPageNum
	trapCx      *TrapContext
}

func newTaskUserRes(p *Process, ustackBase uint64) *TaskUserRes {
	tid := p.tids.alloc()
	res := &TaskUserRes{Tid: tid, Process: p, UstackBase: ustackBase, trapCx: &TrapContext{}}
	vpn := mm.VirtAddr(ustackBottomFor(ustackBase, tid)).Floor()
	ustackEndVPN := mm.VirtAddr(ustackTopFor(ustackBase, tid)).Floor()
	p.MemorySet.InsertFramedArea(vpn, ustackEndVPN, mm.PermR|mm.PermW|mm.PermU)
	trapVPN := mm.VirtAddr(trapCxAddrFor(tid)).Floor()
	p.MemorySet.InsertFramedArea(trapVPN, trapVPN+1, mm.PermR|mm.PermW)
	pte, _ := p.MemorySet.Translate(trapVPN)
	res.trapCxPPN = pte.PPN
	return res
}

// trapCxAddrFor places tid's trap-context frame just below the
// kernel's own stack region so tid -> address stays a pure function
// (spec §4.A), independent of user-stack size.
func trapCxAddrFor(tid Tid) uint64 {
	const trapCxTop = 0x0_ffff_f000
	return trapCxTop - uint64(tid)*trapCxSizePerTid
}

// TrapContext returns this thread's trap-context frame. The backing
// physical page (trapCxPPN) is reserved in the page table so
// translate/mmap accounting for the frame stays accurate, but the
// register file itself is kept as a plain struct rather than
// reinterpreted from raw page bytes on every access.
func (r *TaskUserRes) TrapContext() *TrapContext {
	return r.trapCx
}

// TrapContextPPN exposes the physical page backing the trap context,
// for callers (e.g. the scheduler) that need to know it is mapped.
func (r *TaskUserRes) TrapContextPPN() mm.PhysPageNum { return r.trapCxPPN }

func (r *TaskUserRes) dealloc(p *Process) {
	p.tids.dealloc(r.Tid)
	vpn := mm.VirtAddr(ustackBottomFor(r.UstackBase, r.Tid)).Floor()
	p.MemorySet.Remove(vpn)
	p.MemorySet.Remove(mm.VirtAddr(trapCxAddrFor(r.Tid)).Floor())
}

// Task (TCB) is the unit of scheduling: spec §3's TCB.
type Task struct {
	Process *Process // logically weak: never iterated for ownership, safe under Go's tracing GC
	Kstack  *KernelStack
	Res     *TaskUserRes // nil after early release on exit
	TaskCx  TaskContext

	Status   TaskStatus
	ExitCode int32
	Info     *TaskInfo

	Stride   uint64
	Pass     uint64
	Priority int

	// Resume is the cooperative-scheduling baton: pkg/sched sends on
	// it to hand this task's goroutine the CPU, and the task's own
	// blocking calls (Yield/Block, implemented in pkg/sched and
	// pkg/ksync) park on it until their next turn. This is this
	// kernel's stand-in for the real __switch context swap, which is
	// out of scope per spec §1.
	Resume chan struct{}
}

// NewTask constructs a thread for tid within process p at the given
// user-stack base, with default priority 16 (pass = BigStride/16).
func NewTask(p *Process, ustackBase uint64) *Task {
	res := newTaskUserRes(p, ustackBase)
	t := &Task{
		Process:  p,
		Kstack:   allocKernelStack(res.Tid),
		Res:      res,
		Status:   TaskReady,
		Info:     newTaskInfo(),
		Priority: 16,
		Resume:   make(chan struct{}, 1),
	}
	t.Pass = BigStride / uint64(t.Priority)
	return t
}

// SetPriority implements sys_set_priority's specified (if eccentric)
// behavior: reject p < 2, else set both stride and pass from it
// verbatim. See spec §4.D and §9.
func (t *Task) SetPriority(p int) bool {
	if p < 2 {
		return false
	}
	t.Priority = p
	t.Stride = uint64(p)
	t.Pass = BigStride / uint64(p)
	return true
}

// Tid returns this thread's tid, or -1 if its resources were already
// released (post-exit, pre-reap window).
func (t *Task) Tid() int {
	if t.Res == nil {
		return -1
	}
	return int(t.Res.Tid)
}

// The methods below satisfy pkg/sched.Schedulable, letting *Task be
// enqueued in the stride scheduler without that package importing
// this one (see pkg/sched's package doc for why that cycle matters).

func (t *Task) GetStride() uint64        { return t.Stride }
func (t *Task) GetPass() uint64          { return t.Pass }
func (t *Task) AddStride(delta uint64)   { t.Stride += delta }
func (t *Task) MarkReady()               { t.Status = TaskReady }
func (t *Task) MarkRunning()             { t.Status = TaskRunning }
func (t *Task) MarkBlocked()             { t.Status = TaskBlocked }
func (t *Task) ResumeChan() chan struct{} { return t.Resume }
func (t *Task) OnDispatch(nowMs uint64)  { t.Info.RecordDispatch(nowMs) }
