package vm

import (
	"testing"

	"github.com/Neptune-Developer/Comet-OS/bits"
	"github.com/Neptune-Developer/Comet-OS/kernel"
)

// resetGlobal reinitializes the package-global VM instance and installs a
// freshly allocated, zeroed frame as its L0 root, mirroring what boot does
// before handing off to the rest of the kernel.
func resetGlobal(t *testing.T) (root uint64) {
	t.Helper()

	Init()

	root = Global.frames.allocPage()
	if root == 0 {
		t.Fatal("could not allocate L0 root frame")
	}
	SetPageTableBase(root)

	return root
}

func TestMapInstallsLeafDescriptor(t *testing.T) {
	resetGlobal(t)

	const va = 0x40000000
	const pa = 0x800000

	if ok := Map(va, pa, ProtRead|ProtWrite); !ok {
		t.Fatalf("Map failed")
	}

	l3, idx := Global.walk(va, false)
	if l3 == nil {
		t.Fatalf("walk after Map found no L3 table")
	}

	entry := l3[idx]
	if !isValid(entry) {
		t.Fatalf("leaf descriptor not valid")
	}
	if descAddr(entry) != pa {
		t.Fatalf("leaf address field = %#x, want %#x", descAddr(entry), uint64(pa))
	}
	if bitsGet(entry, pteUXN) != 1 || bitsGet(entry, ptePXN) != 1 {
		t.Fatalf("non-exec mapping missing UXN/PXN")
	}
}

// TestMapLeafDescriptorMatchesLiteralBitPattern pins the exact encoding a
// kernel-only RW mapping must produce: VALID=1, AF=1, SH=11, AttrIndx=2,
// AP=00, UXN=1, PXN=1, with the address field holding pa>>12.
func TestMapLeafDescriptorMatchesLiteralBitPattern(t *testing.T) {
	resetGlobal(t)

	const va = 0x40000000
	const pa = 0x800000

	if ok := Map(va, pa, ProtRead|ProtWrite); !ok {
		t.Fatalf("Map failed")
	}

	l3, idx := Global.walk(va, false)
	if l3 == nil {
		t.Fatalf("walk after Map found no L3 table")
	}
	entry := l3[idx]

	if got := bitsGet(entry, pteValid); got != 1 {
		t.Fatalf("VALID = %d, want 1", got)
	}
	if got := bitsGet(entry, pteAF); got != 1 {
		t.Fatalf("AF = %d, want 1", got)
	}
	if got := bits.Get64(&entry, pteSH, 0x3); got != 0x3 {
		t.Fatalf("SH = %#x, want 0b11", got)
	}
	if got := bits.Get64(&entry, pteAttrIdx, 0x7); got != 2 {
		t.Fatalf("AttrIndx = %d, want 2", got)
	}
	if got := bits.Get64(&entry, pteAP, 0x3); got != 0 {
		t.Fatalf("AP = %#x, want 0b00", got)
	}
	if got := bitsGet(entry, pteUXN); got != 1 {
		t.Fatalf("UXN = %d, want 1", got)
	}
	if got := bitsGet(entry, ptePXN); got != 1 {
		t.Fatalf("PXN = %d, want 1", got)
	}
	if got := descAddr(entry); got != uint64(pa) {
		t.Fatalf("address field = %#x, want %#x", got, uint64(pa))
	}
}

func TestUnmapClearsDescriptorAndArea(t *testing.T) {
	resetGlobal(t)

	const va = 0x40001000
	Map(va, 0x801000, ProtRead)

	if ok := Unmap(va); !ok {
		t.Fatalf("Unmap failed")
	}

	l3, idx := Global.walk(va, false)
	if l3 != nil && isValid(l3[idx]) {
		t.Fatalf("descriptor still valid after Unmap")
	}

	if Global.areas.find(va) != nil {
		t.Fatalf("area still present after Unmap")
	}
}

func TestWXPermittedExecThenReadOnly(t *testing.T) {
	resetGlobal(t)

	const va = 0x60000000
	Map(va, 0xa00000, ProtRead|ProtExec)

	if ok := Protect(va, ProtRead); !ok {
		t.Fatalf("Protect(READ) failed")
	}

	l3, idx := Global.walk(va, false)
	if bitsGet(l3[idx], pteUXN) != 1 {
		t.Fatalf("UXN not set after revoking EXEC")
	}
}

func TestWXTrapPanicsOnWriteThenExec(t *testing.T) {
	resetGlobal(t)

	defer func() { kernel.HaltFn = func() {} }()

	var halted bool
	kernel.HaltFn = func() { halted = true }

	const va = 0x50000000
	Map(va, 0x900000, ProtRead|ProtWrite)

	Protect(va, ProtRead|ProtExec)

	if !halted {
		t.Fatalf("Protect(EXEC) on a previously-writable area did not trigger kernel.Panic")
	}
}

func TestMapRejectsMisalignedAddress(t *testing.T) {
	resetGlobal(t)

	if ok := Map(0x1001, 0x2000, ProtRead); ok {
		t.Fatalf("Map accepted a misaligned virtual address")
	}
}

func TestMapFailsWithoutPageTableBase(t *testing.T) {
	Init()

	if ok := Map(0x40000000, 0x800000, ProtRead); ok {
		t.Fatalf("Map succeeded with no page table base set")
	}
}

func bitsGet(pte uint64, pos int) uint64 {
	return (pte >> uint(pos)) & 1
}
