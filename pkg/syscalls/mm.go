package syscalls

import (
	"github.com/rvcore/corekernel/pkg/abi"
	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/mm"
)

// Mmap implements sys_mmap (spec §4.G): map [start, start+len) into
// the caller's address space with the given R|W|X port bits.
func Mmap(t *kernel.Task, start mm.VirtAddr, length uint64, port uint8) int64 {
	t.Info.RecordSyscall(abi.SyscallMmap)
	if err := mm.MmapPage(t.Process.MemorySet, start, length, port); err != nil {
		return kerrors.Code(err)
	}
	return kerrors.CodeOK
}

// Munmap implements sys_munmap (spec §4.G).
func Munmap(t *kernel.Task, start mm.VirtAddr, length uint64) int64 {
	t.Info.RecordSyscall(abi.SyscallMunmap)
	if err := mm.MunmapPage(t.Process.MemorySet, start, length); err != nil {
		return kerrors.Code(err)
	}
	return kerrors.CodeOK
}
