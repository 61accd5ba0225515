// Package dma provides a first-fit allocator for DMA/MMIO staging buffers,
// adapted from TamaGo's dma package for 64-bit virtual addresses.
package dma

import (
	"unsafe"
)

type block struct {
	// pointer address
	addr uint
	// buffer size
	size uint
	// distinguish regular (Alloc/Free) and reserved (Reserve/Release) blocks
	res bool
}

func (b *block) read(off uint, buf []byte) {
	mem := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(b.addr+off))), len(buf))
	copy(buf, mem)
}

func (b *block) write(off uint, buf []byte) {
	mem := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(b.addr+off))), len(buf))
	copy(mem, buf)
}

func (b *block) slice() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(b.addr))), int(b.size))
}
