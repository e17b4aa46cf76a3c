package syscalls

import (
	"time"

	"github.com/rvcore/corekernel/pkg/abi"
	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/mm"
	"github.com/rvcore/corekernel/pkg/sched"
)

// GetTime implements sys_get_time: write the wall-clock time into ts,
// split-page-safe (spec §4.H). Returns CodeInvalid if ts doesn't
// resolve to mapped pages.
func GetTime(t *kernel.Task, ts mm.VirtAddr) int64 {
	t.Info.RecordSyscall(abi.SyscallGetTime)
	now := time.Now()
	tv := abi.TimeVal{Sec: uint64(now.Unix()), Usec: uint64(now.Nanosecond() / 1000)}
	if !mm.WriteStruct(tokenOf(t), ts, tv.Bytes()) {
		return kerrors.CodeInvalid
	}
	return kerrors.CodeOK
}

// TaskInfo implements sys_task_info: write the calling task's status,
// syscall-count table, and milliseconds-since-first-dispatch into out.
func TaskInfo(t *kernel.Task, out mm.VirtAddr) int64 {
	t.Info.RecordSyscall(abi.SyscallTaskInfo)
	wire := abi.TaskInfo{Status: t.Status}
	for num, count := range t.Info.SyscallTimes {
		if int(num) < abi.MaxSyscallNum {
			wire.SyscallTimes[num] = count
		}
	}
	if first := t.Info.FirstScheduleTimeMs; first != 0 {
		if now := sched.NowMs(); now > first {
			wire.Time = now - first
		}
	}
	if !mm.WriteStruct(tokenOf(t), out, wire.Bytes()) {
		return kerrors.CodeInvalid
	}
	return kerrors.CodeOK
}
