package mm

import (
	"testing"

	"github.com/rvcore/corekernel/pkg/kerrors"
	"gotest.tools/v3/assert"
)

func TestMmapMunmapRoundTrip(t *testing.T) {
	ms := NewMemorySet()
	start := VirtAddr(0x1000_0000)

	assert.NilError(t, MmapPage(ms, start, 2*PageSize, 0b011))
	assert.Assert(t, ms.IsMapped(start.Floor()))
	assert.Assert(t, ms.IsMapped(start.Floor()+1))

	// Overlapping a live mapping fails.
	err := MmapPage(ms, start, PageSize, 0b001)
	assert.ErrorIs(t, err, kerrors.ErrAlreadyMapped)

	assert.NilError(t, MunmapPage(ms, start, 2*PageSize))
	assert.Assert(t, !ms.IsMapped(start.Floor()))

	// Munmapping an already-unmapped range fails.
	err = MunmapPage(ms, start, PageSize)
	assert.ErrorIs(t, err, kerrors.ErrNotMapped)
}

func TestMmapRejectsBadAlignmentAndPort(t *testing.T) {
	ms := NewMemorySet()
	err := MmapPage(ms, VirtAddr(1), PageSize, 0b001)
	assert.ErrorIs(t, err, kerrors.ErrBadAlign)

	err = MmapPage(ms, VirtAddr(0x2000), PageSize, 0)
	assert.ErrorIs(t, err, kerrors.ErrBadPort)

	err = MmapPage(ms, VirtAddr(0x3000), PageSize, 0b1000)
	assert.ErrorIs(t, err, kerrors.ErrBadPort)
}

func TestMmapZeroLengthIsTrivialSuccess(t *testing.T) {
	ms := NewMemorySet()
	assert.NilError(t, MmapPage(ms, VirtAddr(0x4000), 0, 0b111))
	assert.Assert(t, !ms.IsMapped(VirtPageNum(4)))
}
