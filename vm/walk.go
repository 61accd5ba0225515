package vm

import (
	"unsafe"

	"github.com/Neptune-Developer/Comet-OS/arm64"
	"github.com/Neptune-Developer/Comet-OS/internal/simmem"
)

const entriesPerTable = 512

// tableAt reinterprets the 4 KiB frame at phys as 512 translation table
// entries. phys must be frame-aligned, which every table-root and
// table-descriptor address in this package is by construction.
func tableAt(phys uint64) []uint64 {
	raw := simmem.Bytes(uintptr(phys), entriesPerTable*8)
	return unsafe.Slice((*uint64)(unsafe.Pointer(&raw[0])), entriesPerTable)
}

// getOrAlloc returns the child table a parent descriptor points to,
// allocating and zeroing a fresh frame for it (and installing the table
// descriptor into *parent) when the descriptor is not yet valid and
// allocate is true. It returns nil if the descriptor is valid but is a leaf
// (a walk can never continue past a page descriptor), or if allocation was
// requested but the frame pool is exhausted.
func (v *VM) getOrAlloc(table []uint64, idx int, allocate bool) []uint64 {
	entry := table[idx]

	if isValid(entry) {
		if isTable(entry) {
			return tableAt(descAddr(entry))
		}
		return nil
	}

	if !allocate {
		return nil
	}

	phys := v.frames.allocPage()
	if phys == 0 {
		return nil
	}

	table[idx] = encodeTable(phys)
	arm64.MemoryBarrier()

	return tableAt(phys)
}

// walk descends the four-level hierarchy rooted at v.pageTableBase to the
// L3 table covering va, allocating intermediate tables along the way when
// allocate is true. It returns the L3 table and the index of va's leaf
// entry within it, or a nil table if the walk could not be completed.
func (v *VM) walk(va uint64, allocate bool) (l3 []uint64, idx int) {
	if v.pageTableBase == 0 {
		return nil, 0
	}

	l0idx, l1idx, l2idx, l3idx := vaIndices(va)

	l0 := tableAt(v.pageTableBase)

	l1 := v.getOrAlloc(l0, l0idx, allocate)
	if l1 == nil {
		return nil, 0
	}

	l2 := v.getOrAlloc(l1, l1idx, allocate)
	if l2 == nil {
		return nil, 0
	}

	l3 = v.getOrAlloc(l2, l2idx, allocate)
	return l3, l3idx
}

// invalidate performs the barrier/TLBI/barrier/isb sequence required after
// mutating a leaf descriptor.
func invalidate(va uint64) {
	arm64.InvalidateVA(va)
}
