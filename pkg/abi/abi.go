// Package abi defines the wire-level structs and constants shared
// between the kernel and userspace: syscall numbers, the TimeVal and
// TaskInfo result layouts, and the mmap permission bits. Field order
// and sizes mirror spec §6 exactly, since these bytes are copied
// directly into user pages by pkg/syscalls.
package abi

import "encoding/binary"

// MaxSyscallNum bounds the per-task syscall_times table.
const MaxSyscallNum = 500

// Syscall numbers. Only the ones this kernel's task subsystem
// implements are listed; unlisted numbers are not part of this
// module's scope.
const (
	SyscallExit                = 93
	SyscallYield               = 124
	SyscallGetPid              = 172
	SyscallFork                = 220
	SyscallExec                = 221
	SyscallWaitpid             = 260
	SyscallKill                = 129
	SyscallGetTime             = 169
	SyscallTaskInfo            = 410
	SyscallMmap                = 222
	SyscallMunmap              = 215
	SyscallSpawn               = 400
	SyscallSetPriority         = 140
	SyscallSleep               = 101
	SyscallMutexCreate         = 1010
	SyscallMutexLock           = 1011
	SyscallMutexUnlock         = 1012
	SyscallSemaphoreCreate     = 1020
	SyscallSemaphoreUp         = 1021
	SyscallSemaphoreDown       = 1022
	SyscallCondvarCreate       = 1030
	SyscallCondvarSignal       = 1031
	SyscallCondvarWait         = 1032
	SyscallEnableDeadlockCheck = 1040
	SyscallMailRead            = 1050
)

// TaskStatus is the scheduling state reported in TaskInfo.
type TaskStatus uint32

const (
	StatusReady TaskStatus = iota
	StatusRunning
	StatusBlocked
)

// TimeVal mirrors struct timeval: seconds then microseconds, both
// machine-word sized, naturally aligned, little-endian on the wire.
type TimeVal struct {
	Sec  uint64
	Usec uint64
}

// Bytes serializes a TimeVal the way the kernel writes any result
// struct into user memory: as a flat little-endian byte slice that
// translated_byte_buffer's pieces are copied from in order.
func (t TimeVal) Bytes() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], t.Sec)
	binary.LittleEndian.PutUint64(buf[8:16], t.Usec)
	return buf
}

// TaskInfo mirrors the userspace TaskInfo struct: status, the full
// syscall-count table, and milliseconds since first dispatch.
type TaskInfo struct {
	Status       TaskStatus
	SyscallTimes [MaxSyscallNum]uint32
	Time         uint64
}

// Bytes serializes a TaskInfo the same way TimeVal.Bytes does.
func (ti TaskInfo) Bytes() []byte {
	buf := make([]byte, 4+4*MaxSyscallNum+8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(ti.Status))
	off := 4
	for i := 0; i < MaxSyscallNum; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], ti.SyscallTimes[i])
		off += 4
	}
	binary.LittleEndian.PutUint64(buf[off:off+8], ti.Time)
	return buf
}

// MmapPort is the 3-bit R|W|X permission word passed to sys_mmap.
type MmapPort uint8

const (
	PortR MmapPort = 1 << 0
	PortW MmapPort = 1 << 1
	PortX MmapPort = 1 << 2
)

// Valid reports whether port has no bits outside R|W|X set and is
// non-zero, per spec §4.G step 2.
func (p MmapPort) Valid() bool {
	return p != 0 && p&^(PortR|PortW|PortX) == 0
}
