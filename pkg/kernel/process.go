package kernel

import (
	"sync"
	"sync/atomic"

	"github.com/rvcore/corekernel/pkg/deadlock"
	"github.com/rvcore/corekernel/pkg/klog"
	"github.com/rvcore/corekernel/pkg/mm"
	"github.com/rvcore/corekernel/pkg/sched"
)

// Resource is implemented by mutexes, semaphores, and condvars so a
// Process can hold its slot-indexed lists of them without this
// package importing pkg/ksync — ksync imports pkg/kernel (to block
// and wake tasks), so the reverse import would cycle. This mirrors
// the source kernel's Vec<Option<Arc<dyn Mutex>>> trait-object lists.
type Resource interface {
	ResourceID() int
}

// Process is the PCB: spec §3's process container of threads and
// per-process resources.
type Process struct {
	mu sync.Mutex // the process-wide exclusive-access cell, spec §5

	Pid       Pid
	MemorySet *mm.MemorySet

	Parent   *Process // logically weak: a back-reference only, never keeps the parent alive
	Children []*Process

	Tasks []*Task // slot index == tid
	tids  tidAllocator

	IsZombie bool
	ExitCode int32
	Signals  uint32

	Mailbox *Mailbox

	MutexList     []Resource
	SemaphoreList []Resource
	CondvarList   []Resource // holes are nil; first-empty-slot reuse, spec §3

	DetectEnabled bool
	DeadlockMutex *deadlock.Detector
	DeadlockSem   *deadlock.Detector

	refCount int32 // see StrongCount and Waitpid's reap-time check
}

// Lock/Unlock expose the PCB's exclusive-access cell. Callers must
// follow the borrow discipline from spec §5: take the lock, compute,
// clone what's needed, Unlock explicitly, *then* call into the
// scheduler or a sync primitive whose implementation may re-lock this
// same PCB — never call those while still holding mu.
func (p *Process) Lock()   { p.mu.Lock() }
func (p *Process) Unlock() { p.mu.Unlock() }

// IncRef/DecRef model the Arc strong-count discipline spec §3 and §8
// require waitpid to check: every owning slot (the global pid map,
// a parent's children list, a temporary local handle taken during an
// operation) increments on acquisition and decrements on release.
func (p *Process) IncRef() *Process {
	atomic.AddInt32(&p.refCount, 1)
	return p
}

func (p *Process) DecRef() {
	atomic.AddInt32(&p.refCount, -1)
}

// StrongCount returns the current simulated Arc strong count.
func (p *Process) StrongCount() int32 {
	return atomic.LoadInt32(&p.refCount)
}

// NewInitProcess constructs the root/init process with one main
// thread at tid 0, an empty address space, and a fresh pid, and
// enqueues program to run as that thread's workload. It is registered
// in the global pid table with one strong reference (the pid-map
// slot); nothing else owns it until something forks or spawns from it.
func NewInitProcess(ustackBase uint64, program func()) *Process {
	p := &Process{
		Pid:       allocPid(),
		MemorySet: mm.NewMemorySet(),
		Mailbox:   newMailbox(),
	}
	p.refCount = 1
	main := NewTask(p, ustackBase)
	main.TaskCx = TaskContext{}
	p.Tasks = append(p.Tasks, main)
	registerProcess(p)
	sched.Global.Spawn(main, program)
	klog.For("proc").WithField("pid", p.Pid).Info("init process created")
	return p
}

// InsertMutex, InsertSemaphore, and InsertCondvar each call make with
// the first nil slot's index in the corresponding list (reusing an id
// vacated by an earlier resource, or the next fresh index if every
// slot is occupied), store the result there, and return that id. This
// matches original_source/os/src/syscall/sync.rs's slot-reuse
// behavior for resource ids.
func (p *Process) InsertMutex(make func(id int) Resource) int {
	return insertSlot(&p.mu, &p.MutexList, make)
}
func (p *Process) InsertSemaphore(make func(id int) Resource) int {
	return insertSlot(&p.mu, &p.SemaphoreList, make)
}
func (p *Process) InsertCondvar(make func(id int) Resource) int {
	return insertSlot(&p.mu, &p.CondvarList, make)
}

func insertSlot(mu *sync.Mutex, list *[]Resource, make func(id int) Resource) int {
	mu.Lock()
	defer mu.Unlock()
	for i, existing := range *list {
		if existing == nil {
			(*list)[i] = make(i)
			return i
		}
	}
	id := len(*list)
	*list = append(*list, make(id))
	return id
}

// findChildLocked returns the index of the first child matching pid
// (-1 for "any"), or -1 if none. Caller must hold p.mu.
func (p *Process) findChildLocked(pid Pid, zombieOnly bool) int {
	for i, c := range p.Children {
		if pid != -1 && c.Pid != pid {
			continue
		}
		if zombieOnly {
			c.mu.Lock()
			isZombie := c.IsZombie
			c.mu.Unlock()
			if !isZombie {
				continue
			}
		}
		return i
	}
	return -1
}
