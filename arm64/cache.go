//go:build arm64

package arm64

// defined in cache_arm64.s
func dcCivacRange(addr uintptr, length uintptr)
func dcCvacRange(addr uintptr, length uintptr)

const cacheLineSize = 64

// CleanDataCacheRange writes back dirty cache lines covering [addr,
// addr+length) without invalidating them.
func CleanDataCacheRange(addr uintptr, length uintptr) {
	dcCvacRange(alignDown(addr), alignUp(addr+length)-alignDown(addr))
}

// CleanAndInvalidateDataCacheRange writes back and invalidates cache lines
// covering [addr, addr+length).
func CleanAndInvalidateDataCacheRange(addr uintptr, length uintptr) {
	dcCivacRange(alignDown(addr), alignUp(addr+length)-alignDown(addr))
}

func alignDown(addr uintptr) uintptr {
	return addr &^ (cacheLineSize - 1)
}

func alignUp(addr uintptr) uintptr {
	return (addr + cacheLineSize - 1) &^ (cacheLineSize - 1)
}
