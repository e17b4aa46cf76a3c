package kernel

import "github.com/rvcore/corekernel/pkg/sched"

// Current returns the task pkg/sched has currently dispatched, or nil
// if called outside a running task's workload. This is this kernel's
// equivalent of current_task(): a workload closure calls it to learn
// which *Task it is running as before issuing a syscall.
func Current() *Task {
	t, _ := sched.Global.Current().(*Task)
	return t
}
