package mm

import "bytes"

// BufferPiece is one physical-frame slice making up part of a user
// byte range that translated_byte_buffer walked. A range crossing a
// page boundary yields more than one piece; each piece aliases live
// physical memory, so writes through it are visible to the mapping.
type BufferPiece []byte

// TranslatedByteBuffer walks tok's page table and returns the
// physical-frame slices that together cover the byte range
// [ptr, ptr+length), split at page boundaries exactly where the
// source range crosses them. Returns ok=false if any page in the
// range is unmapped.
func TranslatedByteBuffer(tok Token, ptr VirtAddr, length uint64) ([]BufferPiece, bool) {
	ms := tok
	var pieces []BufferPiece
	start := ptr
	end := VirtAddr(uint64(ptr) + length)
	for start < end {
		vpn := start.Floor()
		pte, ok := ms.Translate(vpn)
		if !ok {
			return nil, false
		}
		pageBytes := pte.PPN.Bytes()
		pageEndVA := VirtPageNum(vpn + 1).Addr()
		sliceEnd := end
		if pageEndVA < sliceEnd {
			sliceEnd = pageEndVA
		}
		lo := start.PageOffset()
		hi := lo + (uint64(sliceEnd) - uint64(start))
		pieces = append(pieces, BufferPiece(pageBytes[lo:hi]))
		start = sliceEnd
	}
	return pieces, true
}

// WriteStruct copies src into the user range starting at ptr,
// splitting the copy across however many physical pages the range
// straddles. This is the split-page-safe write spec §4.H mandates for
// every kernel-to-user struct write (get_time, task_info, waitpid's
// exit-code pointer, and any future one).
func WriteStruct(tok Token, ptr VirtAddr, src []byte) bool {
	pieces, ok := TranslatedByteBuffer(tok, ptr, uint64(len(src)))
	if !ok {
		return false
	}
	cursor := 0
	for _, p := range pieces {
		n := copy(p, src[cursor:])
		cursor += n
	}
	return cursor == len(src)
}

// ReadBytes reads length bytes starting at ptr back out of user
// memory, reassembling across page boundaries. Used by tests to read
// back what the kernel wrote.
func ReadBytes(tok Token, ptr VirtAddr, length uint64) ([]byte, bool) {
	pieces, ok := TranslatedByteBuffer(tok, ptr, length)
	if !ok {
		return nil, false
	}
	var buf bytes.Buffer
	for _, p := range pieces {
		buf.Write(p)
	}
	return buf.Bytes(), true
}

// TranslatedStr reads a NUL-terminated string starting at ptr,
// translating one page at a time so the string may straddle pages.
func TranslatedStr(tok Token, ptr VirtAddr) (string, bool) {
	ms := tok
	var out []byte
	addr := ptr
	for {
		vpn := addr.Floor()
		pte, ok := ms.Translate(vpn)
		if !ok {
			return "", false
		}
		page := pte.PPN.Bytes()
		off := addr.PageOffset()
		for ; off < PageSize; off++ {
			b := page[off]
			if b == 0 {
				return string(out), true
			}
			out = append(out, b)
			addr++
		}
	}
}
