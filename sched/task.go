// Package sched implements the kernel's fixed-capacity, priority-biased
// round-robin task scheduler: a ready ring, a sleep queue driven by the
// timer tick, and the callee-saved-register context switch.
package sched

import "github.com/Neptune-Developer/Comet-OS/arm64"

const (
	maxTasks         = 64
	stackSize        = 8192
	idleTaskPriority = 0
)

// State is a task's lifecycle state.
type State uint32

const (
	Dead State = iota
	Ready
	Running
	Sleeping
)

func (s State) String() string {
	switch s {
	case Dead:
		return "DEAD"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Sleeping:
		return "SLEEPING"
	default:
		return "?"
	}
}

// task is one entry in the fixed-capacity task table. Slot 0 is always the
// idle task and is never enqueued on the ready ring.
type task struct {
	tid        uint32
	state      State
	priority   uint32
	timeSlice  uint32
	stackBase  uint64
	sleepUntil uint64
	ctx        arm64.Context
	next       *task
}
