package sched

// ring is the circular, singly-linked ready queue. readyHead always points
// at the most recently enqueued task; the task after it (readyHead.next) is
// the next one to be dequeued, mirroring the FIFO-among-equal-priority
// contract insertion at the head and removal from the tail implies.
type ring struct {
	head *task
}

// enqueue inserts t immediately after head (so it becomes the new
// most-recently-enqueued task), or starts a fresh one-element ring if empty.
func (r *ring) enqueue(t *task) {
	if r.head == nil {
		t.next = t
		r.head = t
		return
	}

	t.next = r.head.next
	r.head.next = t
	r.head = t
}

// dequeue removes and returns head's successor (the oldest enqueued task),
// or nil if the ring is empty. Used only for the fallback iteration path;
// schedule's fast path removes the selected task directly.
func (r *ring) dequeue() *task {
	if r.head == nil {
		return nil
	}

	t := r.head.next
	if t == r.head {
		r.head = nil
	} else {
		r.head.next = t.next
	}
	t.next = nil

	return t
}

// remove unlinks t from the ring, wherever it sits. t must currently be on
// the ring.
func (r *ring) remove(t *task) {
	if r.head == t {
		if t.next == t {
			r.head = nil
		} else {
			cur := r.head
			for cur.next != t {
				cur = cur.next
			}
			cur.next = t.next
			r.head = t.next
		}
	} else {
		cur := r.head
		for cur.next != t {
			cur = cur.next
		}
		cur.next = t.next
	}

	t.next = nil
}

// best walks the ring once and returns the task with the strictly greatest
// priority, first-seen (insertion order from head.next) winning ties. It
// returns nil on an empty ring.
func (r *ring) best() *task {
	if r.head == nil {
		return nil
	}

	var chosen *task
	var chosenPriority uint32

	first := r.head.next
	cur := first
	for {
		if chosen == nil || cur.priority > chosenPriority {
			chosen = cur
			chosenPriority = cur.priority
		}
		cur = cur.next
		if cur == first {
			break
		}
	}

	return chosen
}
