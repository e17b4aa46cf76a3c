package mm

import "github.com/rvcore/corekernel/pkg/kerrors"

// MmapPage implements spec §4.G mmap_page: validates alignment and
// permission, rejects any overlap with an existing mapping, then
// inserts one framed region covering the rounded-up range.
//
// len == 0 is a trivial success per spec; no region is created.
func MmapPage(ms *MemorySet, start VirtAddr, length uint64, port uint8) error {
	if !start.Aligned() {
		return kerrors.ErrBadAlign
	}
	if length == 0 {
		return nil
	}
	if port&^0b111 != 0 || port == 0 {
		return kerrors.ErrBadPort
	}
	startVPN := start.Floor()
	endVPN := VirtAddr(uint64(start) + length).Ceil()
	if ms.AnyMapped(startVPN, endVPN) {
		return kerrors.ErrAlreadyMapped
	}
	perm := FromMmapPort(port)
	if !ms.InsertFramedArea(startVPN, endVPN, perm) {
		return kerrors.ErrNotFound // out of physical frames; treated as a generic failure
	}
	return nil
}

// MunmapPage implements spec §4.G munmap_page: start must be
// page-aligned, length is rounded up to a page, and every page in
// range must currently be mapped or nothing is unmapped.
func MunmapPage(ms *MemorySet, start VirtAddr, length uint64) error {
	if !start.Aligned() {
		return kerrors.ErrBadAlign
	}
	startVPN := start.Floor()
	endVPN := VirtAddr(uint64(start) + RoundUpPage(length)).Ceil()
	if !ms.AllMapped(startVPN, endVPN) {
		return kerrors.ErrNotMapped
	}
	if !ms.Remove(startVPN) {
		return kerrors.ErrNotMapped
	}
	return nil
}
