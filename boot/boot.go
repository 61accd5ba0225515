// Package boot implements the kernel's early bring-up: clearing BSS,
// building the initial translation hierarchy, programming the MMU control
// registers, and handing off to the kernel entry point.
//
// Rather than building a separate, throwaway three-level early map and
// later unifying it with the real four-level walker, this package builds
// the real four-level hierarchy directly: boot's L0 root at physical
// 0x1000 is the same root vm.SetPageTableBase installs, and the low 2 MiB
// identity range it populates is walkable by vm.Map like any other mapping
// from the moment the MMU is enabled.
package boot

import (
	"github.com/Neptune-Developer/Comet-OS/arm64"
	"github.com/Neptune-Developer/Comet-OS/kernel"
	"github.com/Neptune-Developer/Comet-OS/vm"
)

const (
	// RootTableBase is the fixed physical address of the L0 translation
	// table root.
	RootTableBase = 0x1000

	identityMapSize = 2 << 20 // first 2 MiB, covers the kernel image and early structures
)

// ClearBSS zeroes every 8-byte word of bss; callers pass the linker-provided
// BSS range as a []uint64.
func ClearBSS(bss []uint64) {
	for i := range bss {
		bss[i] = 0
	}
}

// BuildIdentityMap installs identity-mapped, read-write, non-executable
// leaf descriptors for the first identityMapSize bytes of physical memory,
// walking vm's four-level hierarchy from scratch. Only the L0 root is fixed,
// at RootTableBase inside vm.Init's RESERVED_PAGES range; every L1/L2/L3
// intermediate table Map needs along the way is allocated dynamically from
// the general frame pool, the same as any other mapping built after boot.
// vm.Init must already have run.
func BuildIdentityMap() {
	vm.SetPageTableBase(RootTableBase)

	for addr := uint64(0); addr < identityMapSize; addr += 4096 {
		if ok := vm.Map(addr, addr, vm.ProtRead|vm.ProtWrite); !ok {
			kernel.Panic(&kernel.Error{Module: "boot", Message: "failed to build identity map"})
		}
	}
}

// EnableMMU programs MAIR_EL1/TCR_EL1/TTBR0_EL1/TTBR1_EL1 and sets
// SCTLR_EL1.{M,C,I} directly (TTBR1_EL1 is left at 0: this tree has no
// upper-half mapping yet). It flushes the instruction cache and all TLB
// entries first, so the first fetch after enabling translation sees a
// clean state.
func EnableMMU() {
	arm64.FlushInstructionCache()
	arm64.FlushTLBAll()

	arm64.EnableMMU(RootTableBase, 0)
}

// Run performs the full bring-up sequence: clear BSS, bring up the frame
// pool, build the identity map, enable the MMU, and return control to the
// caller (ordinarily board/qemuvirt's entry point, which then calls
// sched.Init and starts the first tasks).
func Run(bss []uint64) {
	ClearBSS(bss)
	vm.Init()
	BuildIdentityMap()
	EnableMMU()

	kernel.Default.Info("boot", "MMU enabled, root table at %#x", uint64(RootTableBase))
}
