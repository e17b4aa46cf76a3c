// Package kerrors defines the sentinel errors internal kernel
// components return, and the mapping from each one to the canonical
// negative isize codes the syscall façade hands back to userspace.
package kerrors

import "errors"

// Canonical syscall return codes. See spec §7.
const (
	CodeOK       = 0
	CodeInvalid  = -1
	CodeNotReady = -2
	CodeDeadlock = -0xdead
)

var (
	// ErrNotFound means a pid/path/resource id had no matching entry.
	ErrNotFound = errors.New("not found")
	// ErrNotZombie means a matching child exists but has not exited yet.
	ErrNotZombie = errors.New("child exists but is not a zombie")
	// ErrBadAlign means a VM address was not page-aligned.
	ErrBadAlign = errors.New("address is not page-aligned")
	// ErrAlreadyMapped means an mmap range overlaps an existing mapping.
	ErrAlreadyMapped = errors.New("range already mapped")
	// ErrNotMapped means an munmap range is not fully mapped.
	ErrNotMapped = errors.New("range is not fully mapped")
	// ErrBadPort means an mmap permission word was out of range or zero.
	ErrBadPort = errors.New("bad mmap permission bits")
	// ErrBadPriority means a requested scheduling priority was < 2.
	ErrBadPriority = errors.New("priority must be >= 2")
	// ErrDeadlock means the Banker's algorithm found the request unsafe.
	ErrDeadlock = errors.New("request would deadlock")
	// ErrSyncListNotEmpty means enable_deadlock_detect was attempted
	// after mutexes/semaphores already exist.
	ErrSyncListNotEmpty = errors.New("mutex or semaphore list is not empty")
)

// Code maps an internal error to its canonical syscall return code.
// A nil error maps to CodeOK. An error not recognized here is a
// programming mistake in the caller, not a user-facing condition, and
// panics rather than silently degrading to -1.
func Code(err error) int64 {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBadAlign),
		errors.Is(err, ErrAlreadyMapped), errors.Is(err, ErrNotMapped),
		errors.Is(err, ErrBadPort), errors.Is(err, ErrBadPriority),
		errors.Is(err, ErrSyncListNotEmpty):
		return CodeInvalid
	case errors.Is(err, ErrNotZombie):
		return CodeNotReady
	case errors.Is(err, ErrDeadlock):
		return CodeDeadlock
	default:
		panic("kerrors.Code: unrecognized error: " + err.Error())
	}
}
