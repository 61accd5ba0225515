// Package vm implements the kernel's physical frame allocator and
// four-level ARMv8 virtual memory mapper: frame/area pools, the page table
// walker, and the Map/Unmap/Protect facade that enforces W^X.
package vm

import (
	"github.com/Neptune-Developer/Comet-OS/kernel"
)

// VM owns the frame pool, the area pool, and a reference to the root
// translation table boot installed. There is exactly one instance, Global,
// matching the single-CPU scope of this tree.
type VM struct {
	frames        frameAllocator
	areas         areaPool
	pageTableBase uint64
}

// Global is the kernel's single VM instance.
var Global VM

// Init resets the frame pool, clears the area pool's free list, and clears
// any recorded page table root — SetPageTableBase must be called (by
// boot) before Map/Unmap/Protect succeed.
func Init() {
	Global.frames.init()
	Global.areas = areaPool{}
	Global.pageTableBase = 0

	kernel.Default.Info("vm", "initialized: %d total pages, %d reserved",
		Global.frames.totalPages, reservedPages)
}

// SetPageTableBase records the physical address of the four-level
// hierarchy's L0 root, as established by boot.
func SetPageTableBase(phys uint64) {
	Global.pageTableBase = phys
}

// AllocPage allocates and zeroes one physical frame, returning its physical
// address, or 0 if the pool is exhausted.
func AllocPage() uint64 {
	return Global.frames.allocPage()
}

// AllocPages allocates and zeroes count contiguous physical frames,
// returning the physical address of the first, or 0 on failure.
func AllocPages(count int) uint64 {
	return Global.frames.allocPages(count)
}

// FreePage drops a reference on the frame at phys, releasing it once the
// reference count reaches zero.
func FreePage(phys uint64) {
	Global.frames.freePage(phys)
}

// FreePages releases count frames starting at phys.
func FreePages(phys uint64, count int) {
	Global.frames.freeRange(phys, count)
}

// GetFreePages returns the number of currently unallocated frames.
func GetFreePages() uint64 {
	return Global.frames.getFreePages()
}

// GetTotalPages returns the total number of frames tracked by the pool.
func GetTotalPages() uint64 {
	return Global.frames.getTotalPages()
}

// Map installs a single 4 KiB mapping from virtAddr to physAddr with the
// given permissions, allocating any missing intermediate page tables. Both
// addresses must be 4 KiB aligned. It returns false if the page table base
// is unset, an address is misaligned, the area pool is exhausted, or an
// intermediate table could not be allocated.
func Map(virtAddr, physAddr uint64, prot Prot) bool {
	if Global.pageTableBase == 0 {
		return false
	}
	if virtAddr&0xfff != 0 || physAddr&0xfff != 0 {
		return false
	}

	area := Global.areas.alloc()
	if area == nil {
		return false
	}

	area.start = virtAddr
	area.end = virtAddr + pageSize
	area.prot = prot
	area.wxFlags = 0
	if prot&ProtExec != 0 {
		area.wxFlags |= wasExec
	}
	if prot&ProtWrite != 0 {
		area.wxFlags |= wasWrite
	}

	l3, idx := Global.walk(virtAddr, true)
	if l3 == nil {
		Global.areas.release(area)
		return false
	}

	Global.areas.insert(area)

	l3[idx] = encodeLeaf(physAddr, prot)
	invalidate(virtAddr)

	return true
}

// Unmap clears the L3 descriptor for virtAddr and releases its VmArea. It
// returns false if the page table base is unset, virtAddr is misaligned, or
// no mapping could be walked to.
func Unmap(virtAddr uint64) bool {
	if Global.pageTableBase == 0 {
		return false
	}
	if virtAddr&0xfff != 0 {
		return false
	}

	l3, idx := Global.walk(virtAddr, false)
	if l3 == nil {
		return false
	}

	l3[idx] = 0
	invalidate(virtAddr)

	Global.areas.remove(virtAddr)

	return true
}

// Protect changes the access permissions of the mapping covering virtAddr.
// If newProt requests EXEC on an area that was ever mapped WRITE, it calls
// kernel.Panic: a frame that has ever been writable may never become
// executable, regardless of whether it is currently writable. It is legal
// to make a currently-executable page writable, but it can never regain
// EXEC afterward. Returns false if no mapping exists at virtAddr.
func Protect(virtAddr uint64, newProt Prot) bool {
	if Global.pageTableBase == 0 {
		return false
	}
	if virtAddr&0xfff != 0 {
		return false
	}

	area := Global.areas.find(virtAddr)
	if area == nil {
		return false
	}

	if newProt&ProtExec != 0 && area.wxFlags&wasWrite != 0 {
		kernel.Panic(&kernel.Error{
			Module:  "vm",
			Message: "W^X violation: cannot turn read/writable memory into executable",
		})
	}

	l3, idx := Global.walk(virtAddr, false)
	if l3 == nil {
		return false
	}

	entry := l3[idx]
	if !isValid(entry) {
		return false
	}

	phys := descAddr(entry)
	l3[idx] = encodeLeaf(phys, newProt)
	invalidate(virtAddr)

	area.prot = newProt
	if newProt&ProtWrite != 0 {
		area.wxFlags |= wasWrite
	}
	if newProt&ProtExec != 0 {
		area.wxFlags |= wasExec
	}

	return true
}
