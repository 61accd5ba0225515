package vm

const areaPoolSize = 1024

// vmArea describes one mapped 4 KiB region.
type vmArea struct {
	start   uint64
	end     uint64
	prot    Prot
	wxFlags wxFlag
	next    *vmArea
	inUse   bool
}

// areaPool is a bounded, preallocated pool of vmArea descriptors with a
// free list, so Map/Unmap never touch a general-purpose allocator.
type areaPool struct {
	pool     [areaPoolSize]vmArea
	nextFree int
	freeList *vmArea

	areas *vmArea // head of the in-use, singly-linked area list
}

func (p *areaPool) alloc() *vmArea {
	if p.freeList != nil {
		a := p.freeList
		p.freeList = a.next
		a.inUse = true
		return a
	}

	if p.nextFree < areaPoolSize {
		a := &p.pool[p.nextFree]
		p.nextFree++
		a.inUse = true
		return a
	}

	return nil
}

func (p *areaPool) release(a *vmArea) {
	if a == nil {
		return
	}

	a.inUse = false
	a.next = p.freeList
	p.freeList = a
}

func (p *areaPool) insert(a *vmArea) {
	a.next = p.areas
	p.areas = a
}

// remove unlinks and releases the area covering va, if any, back to the
// free list.
func (p *areaPool) remove(va uint64) {
	cur := &p.areas

	for *cur != nil {
		a := *cur
		if a.start <= va && va < a.end {
			*cur = a.next
			p.release(a)
			return
		}
		cur = &a.next
	}
}

// find returns the area covering va, or nil.
func (p *areaPool) find(va uint64) *vmArea {
	for a := p.areas; a != nil; a = a.next {
		if a.start <= va && va < a.end {
			return a
		}
	}
	return nil
}
