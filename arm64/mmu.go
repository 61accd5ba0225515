//go:build arm64

package arm64

// MAIR_EL1 attribute indices, shared with vm/pte.go's leaf descriptors.
const (
	// MairDevice is index 0: Device-nGnRnE. vm.Map does not use it: every
	// leaf vm installs, MMIO windows included, uses MairNormal.
	MairDevice = 0
	// MairNormal is index 2: Normal, Inner/Outer Write-Back, used for RAM.
	// Index 1 is left unused.
	MairNormal = 2

	mairValue = (0x00 << 0) | (0xff << 16) // [idx0]=Device-nGnRnE, [idx2]=Normal WB RW-allocate
)

// TCR_EL1 fields, 48-bit VA (T0SZ=T1SZ=16), 4KB granule, inner-shareable,
// write-back inner/outer cacheable walks for both TTBR0 and TTBR1 regions.
const (
	tcrT0SZ   = uint64(16) << 0
	tcrT1SZ   = uint64(16) << 16
	tcrIRGN0  = uint64(1) << 8  // normal WBWA inner
	tcrORGN0  = uint64(1) << 10 // normal WBWA outer
	tcrSH0    = uint64(3) << 12 // inner shareable
	tcrTG0_4K = uint64(0) << 14
	tcrIRGN1  = uint64(1) << 24
	tcrORGN1  = uint64(1) << 26
	tcrSH1    = uint64(3) << 28
	tcrTG1_4K = uint64(2) << 30 // TG1 encodes 4K as 0b10
	tcrIPS_1TB = uint64(2) << 32 // 40-bit physical address size

	tcrValue = tcrT0SZ | tcrT1SZ | tcrIRGN0 | tcrORGN0 | tcrSH0 | tcrTG0_4K |
		tcrIRGN1 | tcrORGN1 | tcrSH1 | tcrTG1_4K | tcrIPS_1TB
)

// SCTLR_EL1 bits this tree touches.
const (
	sctlrM = 1 << 0 // MMU enable
	sctlrC = 1 << 2 // data cache enable
	sctlrI = 1 << 12 // instruction cache enable
)

// defined in mmu_arm64.s
func writeTTBR0EL1(val uint64)
func writeTTBR1EL1(val uint64)
func writeTCREL1(val uint64)
func writeMAIREL1(val uint64)
func readSCTLREL1() uint64
func writeSCTLREL1(val uint64)
func isb()

// EnableMMU programs MAIR_EL1, TCR_EL1, TTBR0_EL1 and TTBR1_EL1 from the
// root table addresses the caller passes, then sets SCTLR_EL1.M (along
// with the data and instruction caches) to turn translation on.
//
// ttbr0 roots the lower (TTBR0) address range; ttbr1 roots the upper
// (TTBR1) range. boot passes its L0 root as ttbr0 and 0 as ttbr1, so no
// upper-half mapping exists. Both walks share the same page table format,
// so vm's four-level walker is agnostic to which root it is invoked against.
func EnableMMU(ttbr0, ttbr1 uint64) {
	writeMAIREL1(mairValue)
	writeTCREL1(tcrValue)
	isb()

	writeTTBR0EL1(ttbr0)
	writeTTBR1EL1(ttbr1)
	isb()

	sctlr := readSCTLREL1()
	sctlr |= sctlrM | sctlrC | sctlrI
	writeSCTLREL1(sctlr)
	isb()
}

// DisableMMU clears SCTLR_EL1.M, reverting to physical addressing. Nothing
// in this tree calls it.
func DisableMMU() {
	sctlr := readSCTLREL1()
	sctlr &^= sctlrM
	writeSCTLREL1(sctlr)
	isb()
}
