// Package simmem provides the hosted stand-in for the linker-reserved RAM
// window vm's frame allocator addresses on real hardware. It reserves one
// anonymous mmap arena sized to the frame pool and translates the
// allocator's "physical addresses" (which start at 0) into offsets into
// that arena, so zero-on-alloc/zero-on-free and W^X tests exercise real
// backing memory under `go test` instead of a mocked byte slice.
package simmem

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	once sync.Once
	arena []byte
)

// Size is the byte length of the simulated physical address space: 262144
// frames of 4 KiB, matching vm's maxPages.
const Size = 262144 * 4096

func ensure() {
	once.Do(func() {
		mem, err := unix.Mmap(-1, 0, Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			panic("simmem: mmap failed: " + err.Error())
		}
		arena = mem
	})
}

// Bytes returns a slice over length bytes of simulated physical memory
// starting at addr. addr is a "physical address" in vm's sense, i.e. an
// offset into this arena, not a process virtual address.
func Bytes(addr uintptr, length int) []byte {
	ensure()

	start := int(addr)
	if start < 0 || start+length > len(arena) {
		panic("simmem: access out of arena bounds")
	}

	return arena[start : start+length]
}

// Base returns the arena's process-virtual base address, for code that
// needs to compute a real pointer (e.g. a DMA region spanning simulated
// physical memory).
func Base() uintptr {
	ensure()
	return uintptr(unsafe.Pointer(&arena[0]))
}
