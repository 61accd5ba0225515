//go:build arm64

package arm64

// defined in barrier_arm64.s
func dsbSY()
func dsbISH()
func tlbiVAAE1IS(va uint64)
func tlbiVMALLE1IS()
func icIALLU()

// InvalidateVA invalidates the TLB entry for the page containing va across
// all cores (inner-shareable broadcast), following the sequence vm's
// Unmap/Protect operations require: a store barrier to retire the updated
// descriptor before invalidation, the TLBI itself, then a second barrier
// plus instruction-stream synchronization before any code relies on the new
// mapping.
func InvalidateVA(va uint64) {
	dsbISH()
	tlbiVAAE1IS(va >> 12)
	dsbISH()
	isb()
}

// MemoryBarrier issues a full system data synchronization barrier, ensuring
// all prior stores (e.g. installing a new table descriptor) are visible to
// the hardware table walker before any subsequent walk can observe it.
func MemoryBarrier() {
	dsbSY()
}

// FlushTLBAll invalidates every TLB entry for the current ASID across all
// cores. Used after a bulk remap such as boot's initial identity-to-high
// transition.
func FlushTLBAll() {
	dsbSY()
	tlbiVMALLE1IS()
	dsbSY()
	isb()
}

// FlushInstructionCache invalidates the instruction cache to the point of
// unification, required after writing executable pages (e.g. loading a
// task's code) before that core can safely fetch from them.
func FlushInstructionCache() {
	icIALLU()
	dsbSY()
	isb()
}
