package dma

import (
	"container/list"
	"unsafe"
)

// addressOf returns the address of a byte slice's backing storage.
func addressOf(buf []byte) uint {
	return uint(uintptr(unsafe.Pointer(&buf[0])))
}

func (r *Region) alloc(size uint, align uint) *block {
	var e *list.Element
	var freeBlock *block
	var pad uint

	if align == 0 {
		// force word alignment
		align = 4
	}

	for e = r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		pad = -b.addr & (align - 1)
		need := size + pad

		if b.size >= need {
			freeBlock = b
			size = need
			break
		}
	}

	if freeBlock == nil {
		panic("dma: out of memory")
	}

	defer r.freeBlocks.Remove(e)

	if rem := freeBlock.size - size; rem != 0 {
		newBlockAfter := &block{
			addr: freeBlock.addr + size,
			size: rem,
		}

		freeBlock.size = size
		r.freeBlocks.InsertAfter(newBlockAfter, e)
	}

	if pad != 0 {
		newBlockBefore := &block{
			addr: freeBlock.addr,
			size: pad,
		}

		freeBlock.addr += pad
		freeBlock.size -= pad
		r.freeBlocks.InsertBefore(newBlockBefore, e)
	}

	return freeBlock
}

func (r *Region) free(usedBlock *block) {
	for e := r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		if b.addr > usedBlock.addr {
			r.freeBlocks.InsertBefore(usedBlock, e)
			r.defrag()
			return
		}
	}

	r.freeBlocks.PushBack(usedBlock)
}

func (r *Region) defrag() {
	var prevBlock *block

	for e := r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		if prevBlock != nil && prevBlock.addr+prevBlock.size == b.addr {
			prevBlock.size += b.size
			defer r.freeBlocks.Remove(e)
			continue
		}

		prevBlock = b
	}
}
