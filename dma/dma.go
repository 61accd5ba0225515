package dma

import (
	"container/list"
	"sync"
)

// Region represents a memory region allocated for DMA/MMIO staging buffers.
// A Region is normally carved out of the virtual window a driver obtained
// from vm.Map, so that a device's TX/RX buffers stay inside the page(s) the
// driver is permitted to touch.
type Region struct {
	sync.Mutex

	start uint
	size  uint

	freeBlocks *list.List
	usedBlocks map[uint]*block
}

var global *Region

// NewRegion creates and initializes a DMA region covering [start, start+size).
func NewRegion(start uint, size uint) *Region {
	r := &Region{start: start, size: size}
	r.init()
	return r
}

func (r *Region) init() {
	b := &block{addr: r.start, size: r.size}

	r.Lock()
	defer r.Unlock()

	r.freeBlocks = list.New()
	r.freeBlocks.PushFront(b)
	r.usedBlocks = make(map[uint]*block)
}

// Start returns the region's start address.
func (r *Region) Start() uint {
	return r.start
}

// End returns the region's end address (exclusive).
func (r *Region) End() uint {
	return r.start + r.size
}

// Size returns the region's size in bytes.
func (r *Region) Size() uint {
	return r.size
}

// Reserve allocates size bytes within the region without copying a caller
// buffer into it, returning the backing address and a slice over it. Callers
// own buf's contents until Release.
func (r *Region) Reserve(size int, align int) (addr uint, buf []byte) {
	if size == 0 {
		return
	}

	r.Lock()
	defer r.Unlock()

	b := r.alloc(uint(size), uint(align))
	b.res = true
	r.usedBlocks[b.addr] = b

	return b.addr, b.slice()
}

// Reserved reports whether buf's backing storage lies within the region.
func (r *Region) Reserved(buf []byte) (res bool, addr uint) {
	if len(buf) == 0 {
		return false, 0
	}

	addr = addressOf(buf)
	res = addr >= r.start && addr+uint(len(buf)) <= r.start+r.size

	return
}

// Alloc copies buf into a freshly allocated block within the region and
// returns the block's address. A buffer previously obtained from Reserve is
// returned unchanged (no copy, no new allocation).
func (r *Region) Alloc(buf []byte, align int) (addr uint) {
	size := len(buf)
	if size == 0 {
		return 0
	}

	if res, addr := r.Reserved(buf); res {
		return addr
	}

	r.Lock()
	defer r.Unlock()

	b := r.alloc(uint(size), uint(align))
	b.write(0, buf)
	r.usedBlocks[b.addr] = b

	return b.addr
}

// Read copies len(buf) bytes starting at offset off of the block at addr
// into buf. addr must have been returned by Alloc or Reserve.
func (r *Region) Read(addr uint, off int, buf []byte) {
	size := len(buf)
	if addr == 0 || size == 0 {
		return
	}

	if res, _ := r.Reserved(buf); res {
		return
	}

	r.Lock()
	defer r.Unlock()

	b, ok := r.usedBlocks[addr]
	if !ok {
		panic("dma: read of unallocated block")
	}

	if uint(off+size) > b.size {
		panic("dma: invalid read parameters")
	}

	b.read(uint(off), buf)
}

// Write copies buf into the block at addr starting at offset off. addr must
// have been returned by Alloc or Reserve.
func (r *Region) Write(addr uint, off int, buf []byte) {
	size := len(buf)
	if addr == 0 || size == 0 {
		return
	}

	r.Lock()
	defer r.Unlock()

	b, ok := r.usedBlocks[addr]
	if !ok {
		return
	}

	if uint(off+size) > b.size {
		panic("dma: invalid write parameters")
	}

	b.write(uint(off), buf)
}

// Free releases a block previously returned by Alloc.
func (r *Region) Free(addr uint) {
	r.freeBlock(addr, false)
}

// Release releases a block previously returned by Reserve.
func (r *Region) Release(addr uint) {
	r.freeBlock(addr, true)
}

func (r *Region) freeBlock(addr uint, res bool) {
	if addr == 0 {
		return
	}

	r.Lock()
	defer r.Unlock()

	b, ok := r.usedBlocks[addr]
	if !ok || b.res != res {
		return
	}

	r.free(b)
	delete(r.usedBlocks, addr)
}

// Init initializes the package-global DMA region, mirroring TamaGo's single
// default region used throughout its driver tree.
func Init(start uint, size int) {
	global = NewRegion(start, uint(size))
}

// Default returns the package-global DMA region.
func Default() *Region {
	return global
}
