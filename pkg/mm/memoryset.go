package mm

import (
	"github.com/mohae/deepcopy"
)

// MapArea is one contiguous, page-granular mapped region: the VPN
// range it covers, its permission bits, and (for framed regions) the
// physical frame backing each page in the range.
type MapArea struct {
	StartVPN VirtPageNum
	EndVPN   VirtPageNum // exclusive
	Perm     MapPermission
	frames   map[VirtPageNum]*FrameTracker
}

func (a *MapArea) contains(vpn VirtPageNum) bool {
	return vpn >= a.StartVPN && vpn < a.EndVPN
}

func (a *MapArea) overlaps(start, end VirtPageNum) bool {
	return a.StartVPN < end && start < a.EndVPN
}

// MemorySet is the page table plus the list of mapped regions of one
// address space, matching the glossary's MemorySet definition. It is
// the thin bridge component (spec §4.B) the rest of the kernel talks
// to instead of ever touching a PageTable directly.
type MemorySet struct {
	pageTable *PageTable
	areas     []*MapArea
}

// NewMemorySet returns an empty address space.
func NewMemorySet() *MemorySet {
	return &MemorySet{pageTable: NewPageTable()}
}

// Token is the opaque handle spec's glossary describes: "sufficient
// to translate a user virtual address to a kernel-accessible slice".
// The source kernel's token is a packed satp register value pointing
// at a page-table root; since this kernel has no real MMU, the
// MemorySet pointer itself serves as that handle.
type Token = *MemorySet

// Token returns this address space's opaque handle.
func (ms *MemorySet) Token() Token { return ms }

// Translate looks up the VPN containing va and returns its PTE.
func (ms *MemorySet) Translate(vpn VirtPageNum) (PTE, bool) {
	return ms.pageTable.Translate(vpn)
}

// IsMapped reports whether vpn currently has a valid mapping.
func (ms *MemorySet) IsMapped(vpn VirtPageNum) bool {
	_, ok := ms.pageTable.Translate(vpn)
	return ok
}

// InsertFramedArea allocates one physical frame per page in
// [startVPN, endVPN) and maps it with perm. Fails (returning false)
// if allocation runs out of frames partway through; pages already
// mapped by this call are rolled back in that case.
func (ms *MemorySet) InsertFramedArea(startVPN, endVPN VirtPageNum, perm MapPermission) bool {
	area := &MapArea{StartVPN: startVPN, EndVPN: endVPN, Perm: perm, frames: make(map[VirtPageNum]*FrameTracker)}
	for vpn := startVPN; vpn < endVPN; vpn++ {
		ft, ok := allocFrame()
		if !ok {
			for mapped, f := range area.frames {
				ms.pageTable.Unmap(mapped)
				f.Dealloc()
			}
			return false
		}
		area.frames[vpn] = ft
		ms.pageTable.Map(vpn, ft.PPN, perm)
	}
	ms.areas = append(ms.areas, area)
	return true
}

// Remove unmaps and frees the area whose StartVPN matches startVPN,
// mirroring MemorySet::remove_area_with_start_vpn. Reports whether a
// matching area was found.
func (ms *MemorySet) Remove(startVPN VirtPageNum) bool {
	for i, a := range ms.areas {
		if a.StartVPN != startVPN {
			continue
		}
		ms.unmapArea(a)
		ms.areas = append(ms.areas[:i], ms.areas[i+1:]...)
		return true
	}
	return false
}

func (ms *MemorySet) unmapArea(a *MapArea) {
	for vpn := a.StartVPN; vpn < a.EndVPN; vpn++ {
		ms.pageTable.Unmap(vpn)
	}
	for _, f := range a.frames {
		f.Dealloc()
	}
}

// AnyMapped reports whether any page in [start, end) is already
// validly mapped, used by mmap's overlap check.
func (ms *MemorySet) AnyMapped(start, end VirtPageNum) bool {
	for vpn := start; vpn < end; vpn++ {
		if ms.IsMapped(vpn) {
			return true
		}
	}
	return false
}

// AllMapped reports whether every page in [start, end) is validly
// mapped, used by munmap's precondition.
func (ms *MemorySet) AllMapped(start, end VirtPageNum) bool {
	for vpn := start; vpn < end; vpn++ {
		if !ms.IsMapped(vpn) {
			return false
		}
	}
	return true
}

// areaDescriptor is the structural, frame-free shape of a MapArea
// used purely as a deepcopy.Copy source: copying vpn ranges and
// permission bits by reflection is safe and saves hand-written
// struct-literal boilerplate; the frames themselves are never part of
// this because physical pages must be freshly allocated, never
// aliased, on fork.
type areaDescriptor struct {
	StartVPN VirtPageNum
	EndVPN   VirtPageNum
	Perm     MapPermission
}

// Fork deep-copies every mapped region of ms into a fresh MemorySet:
// new frames are allocated for each page and the parent's bytes are
// copied in, so child and parent share no physical storage. This
// backs Process.Fork's address-space clone (spec §4.C).
func (ms *MemorySet) Fork() (*MemorySet, bool) {
	child := NewMemorySet()
	for _, a := range ms.areas {
		descCopy := deepcopy.Copy(areaDescriptor{StartVPN: a.StartVPN, EndVPN: a.EndVPN, Perm: a.Perm}).(areaDescriptor)
		if !child.InsertFramedArea(descCopy.StartVPN, descCopy.EndVPN, descCopy.Perm) {
			return nil, false
		}
		for vpn := descCopy.StartVPN; vpn < descCopy.EndVPN; vpn++ {
			parentPTE, ok := ms.Translate(vpn)
			if !ok {
				continue
			}
			childPTE, _ := child.Translate(vpn)
			copy(childPTE.PPN.Bytes(), parentPTE.PPN.Bytes())
		}
	}
	return child, true
}
