package kernel

import "sync"

// taskSet is the kernel-wide pid -> PCB registry, named after
// gVisor's TaskSet ("comprises all tasks in a system"). Every mutable
// shared structure in this kernel, this map included, is protected by
// a single exclusive-access cell (spec §5).
type taskSet struct {
	mu    sync.Mutex
	procs map[Pid]*Process
}

var globalTaskSet = &taskSet{procs: make(map[Pid]*Process)}

func registerProcess(p *Process) {
	globalTaskSet.mu.Lock()
	defer globalTaskSet.mu.Unlock()
	globalTaskSet.procs[p.Pid] = p
}

// LookupProcess returns the PCB for pid. This is a transient,
// non-owning read (unlike the children-list and pid-map slots, it
// does not participate in the StrongCount invariant waitpid checks —
// only reap-relevant ownership is tracked, per DESIGN.md).
func LookupProcess(pid Pid) (*Process, bool) {
	globalTaskSet.mu.Lock()
	defer globalTaskSet.mu.Unlock()
	p, ok := globalTaskSet.procs[pid]
	return p, ok
}

// removeProcess deletes pid from the registry. Panics if pid is
// absent — that is an internal invariant violation (spec §7: "fatal,
// never expressed as a negative return"), not a user-visible error.
func removeProcess(pid Pid) {
	globalTaskSet.mu.Lock()
	defer globalTaskSet.mu.Unlock()
	if _, ok := globalTaskSet.procs[pid]; !ok {
		panic("kernel: remove_from_pid2task: pid not found")
	}
	delete(globalTaskSet.procs, pid)
}

// InitProcess is the kernel-wide init PCB that reparented orphans
// attach to. Set once by Boot.
var InitProcess *Process

// ProcessCount reports the number of live (non-reaped) processes,
// used by the boot command's reap loop.
func ProcessCount() int {
	globalTaskSet.mu.Lock()
	defer globalTaskSet.mu.Unlock()
	return len(globalTaskSet.procs)
}

// ListPids returns every pid currently registered, for the ps
// subcommand. Order is unspecified.
func ListPids() []Pid {
	globalTaskSet.mu.Lock()
	defer globalTaskSet.mu.Unlock()
	pids := make([]Pid, 0, len(globalTaskSet.procs))
	for pid := range globalTaskSet.procs {
		pids = append(pids, pid)
	}
	return pids
}
