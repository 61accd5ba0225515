package vm

import (
	"testing"

	"github.com/Neptune-Developer/Comet-OS/internal/simmem"
)

func TestFrameAllocatorInitReservesLowRange(t *testing.T) {
	var a frameAllocator
	a.init()

	if got, want := a.getTotalPages(), uint64(maxPages); got != want {
		t.Fatalf("totalPages = %d, want %d", got, want)
	}

	if got, want := a.getFreePages(), uint64(maxPages-reservedPages); got != want {
		t.Fatalf("freePages = %d, want %d", got, want)
	}

	for pfn := uint64(0); pfn < reservedPages; pfn++ {
		if !a.isBitSet(pfn) {
			t.Fatalf("reserved pfn %d not marked allocated", pfn)
		}
		if a.frames[pfn].refCount != 1 {
			t.Fatalf("reserved pfn %d refCount = %d, want 1", pfn, a.frames[pfn].refCount)
		}
	}
}

func TestAllocPageLowestFirst(t *testing.T) {
	var a frameAllocator
	a.init()

	phys := a.allocPage()
	if phys != reservedPages*pageSize {
		t.Fatalf("allocPage() = %#x, want %#x", phys, uint64(reservedPages*pageSize))
	}

	if a.getFreePages() != maxPages-reservedPages-1 {
		t.Fatalf("freePages after one alloc = %d", a.getFreePages())
	}
}

func TestAllocPageZeroesFrame(t *testing.T) {
	var a frameAllocator
	a.init()

	phys := a.allocPage()
	mem := readFrame(t, phys)

	for i, b := range mem {
		if b != 0 {
			t.Fatalf("allocated frame not zeroed at offset %d: %#x", i, b)
		}
	}
}

func TestFreePageZeroesAndReleases(t *testing.T) {
	var a frameAllocator
	a.init()

	phys := a.allocPage()
	mem := readFrame(t, phys)
	mem[0] = 0xff

	a.freePage(phys)

	if a.isBitSet(phys >> pageShift) {
		t.Fatalf("freed pfn still marked allocated")
	}

	mem = readFrame(t, phys)
	if mem[0] != 0 {
		t.Fatalf("freed frame not zeroed")
	}
}

func TestFreePageRefCounted(t *testing.T) {
	var a frameAllocator
	a.init()

	phys := a.allocPage()
	a.frames[phys>>pageShift].refCount = 2

	a.freePage(phys)
	if !a.isBitSet(phys >> pageShift) {
		t.Fatalf("frame released after dropping to refCount 1, want still allocated")
	}

	a.freePage(phys)
	if a.isBitSet(phys >> pageShift) {
		t.Fatalf("frame not released after refCount reached 0")
	}
}

func TestFreeReservedPageIsNoop(t *testing.T) {
	var a frameAllocator
	a.init()

	before := a.getFreePages()
	a.freePage(0)

	if a.getFreePages() != before {
		t.Fatalf("freeing a reserved frame changed freePages")
	}
}

func TestAllocPagesContiguous(t *testing.T) {
	var a frameAllocator
	a.init()

	phys := a.allocPages(4)
	if phys != reservedPages*pageSize {
		t.Fatalf("allocPages(4) = %#x, want %#x", phys, uint64(reservedPages*pageSize))
	}

	for pfn := uint64(reservedPages); pfn < reservedPages+4; pfn++ {
		if !a.isBitSet(pfn) {
			t.Fatalf("pfn %d not marked allocated after allocPages", pfn)
		}
	}

	if a.getFreePages() != maxPages-reservedPages-4 {
		t.Fatalf("freePages after allocPages(4) = %d", a.getFreePages())
	}
}

func TestAllocPagesRejectsInvalidCount(t *testing.T) {
	var a frameAllocator
	a.init()

	if phys := a.allocPages(0); phys != 0 {
		t.Fatalf("allocPages(0) = %#x, want 0", phys)
	}

	if phys := a.allocPages(int(a.getFreePages()) + 1); phys != 0 {
		t.Fatalf("allocPages(too many) = %#x, want 0", phys)
	}
}

func readFrame(t *testing.T, phys uint64) []byte {
	t.Helper()
	return simmem.Bytes(uintptr(phys), pageSize)
}
