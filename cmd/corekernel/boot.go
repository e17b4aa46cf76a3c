package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/klog"
	"github.com/rvcore/corekernel/pkg/sched"
	"github.com/rvcore/corekernel/pkg/syscalls"
	"github.com/rvcore/corekernel/pkg/timer"
	"golang.org/x/sync/errgroup"
)

// initUstackBase is the user-stack base every top-level process in
// this demo kernel starts from. Each process owns its own page table,
// so reusing the same virtual layout across processes is safe.
const initUstackBase = 0x1_0000_0000

// Boot implements `corekernel boot`: load a workload manifest, fork
// one child process per workload off the init process, and run the scheduler
// and timer wheel as an errgroup until every task has exited.
type Boot struct {
	manifestPath string
	logLevel     string
}

func (*Boot) Name() string     { return "boot" }
func (*Boot) Synopsis() string { return "boot the kernel with a workload manifest" }
func (*Boot) Usage() string {
	return "boot [-manifest path] [-log-level level]\n" +
		"  Start the scheduler and timer wheel, fork one child process per manifest\n" +
		"  workload from the init process, and run until every task has exited.\n"
}

func (b *Boot) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&b.manifestPath, "manifest", "", "path to a TOML boot manifest (default: one built-in demo workload)")
	fs.StringVar(&b.logLevel, "log-level", "info", "klog level: debug, info, warn, error")
}

func (b *Boot) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := klog.SetLevel(b.logLevel); err != nil {
		return subcommands.ExitUsageError
	}
	log := klog.For("boot")

	manifest, err := loadManifest(b.manifestPath)
	if err != nil {
		log.WithError(err).Error("failed to load manifest")
		return subcommands.ExitFailure
	}
	log.Infof("booting with %d workload(s), detect_deadlock=%v", len(manifest.Workloads), manifest.DetectDeadlock)

	init := kernel.NewInitProcess(initUstackBase, func() {
		t := kernel.Current()
		if manifest.DetectDeadlock {
			syscalls.EnableDeadlockDetect(t, true)
		}
		for _, w := range manifest.Workloads {
			if _, ok := t.Process.Fork(demoWorkload(w.Name, w.Priority)); !ok {
				klog.For("boot").Warnf("failed to fork workload %q", w.Name)
			}
		}
		for kernel.ProcessCount() > 1 {
			result := syscalls.Waitpid(t, -1, 0)
			if result == kerrors.CodeNotReady {
				syscalls.Yield(t)
				continue
			}
			if result == kerrors.CodeInvalid {
				break
			}
		}
		syscalls.Exit(t, 0)
	})
	kernel.InitProcess = init

	stop := make(chan struct{})
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Global.RunLoop()
		close(stop)
		return nil
	})
	g.Go(func() error {
		timer.Global.Run(stop)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("kernel loop exited with an error")
		return subcommands.ExitFailure
	}
	log.Info("all tasks exited, kernel halting")
	return subcommands.ExitSuccess
}
