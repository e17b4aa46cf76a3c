package main

import (
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/klog"
	"github.com/rvcore/corekernel/pkg/syscalls"
)

// demoWorkload returns a program that sets its own priority, yields
// once, sleeps briefly, and exits — enough to exercise fork, the
// stride scheduler, and the timer wheel without a real ELF loader
// (out of scope per spec §1).
func demoWorkload(name string, priority int) func() {
	return func() {
		t := kernel.Current()
		if priority >= 2 {
			syscalls.SetPriority(t, priority)
		}
		log := klog.Task("workload", int(t.Process.Pid), t.Tid())
		log.Infof("%s: started", name)
		syscalls.Yield(t)
		syscalls.Sleep(t, 5)
		log.Infof("%s: exiting", name)
		syscalls.Exit(t, 0)
	}
}
