package sched

import (
	"reflect"

	"github.com/Neptune-Developer/Comet-OS/arm64"
	"github.com/Neptune-Developer/Comet-OS/kernel"
	"github.com/Neptune-Developer/Comet-OS/vm"
)

// entryPointer extracts the code address of a non-closure task entry
// function, for storing in a fresh task's Ctx.X30: the first time
// arm64.Switch restores that context, the "return" it performs lands
// directly on entry, the same trick a raw C function pointer stored in
// a saved context plays.
func entryPointer(fn func()) uint64 {
	return uint64(reflect.ValueOf(fn).Pointer())
}

// Sched owns the task table, the ready ring, and the current-task pointer.
// There is exactly one instance, Global.
type Sched struct {
	tasks    [maxTasks]task
	ready    ring
	current  *task
	idle     *task
	nextTID  uint32
	tickCount uint64

	// now returns the current tick count from the hardware timer; a field
	// rather than a direct arm64 call so tests can drive it deterministically.
	now func() uint64
}

// Global is the kernel's single scheduler instance.
var Global Sched

// idleLoop is the idle task's body: it parks the core on WFI forever. Init
// points the idle task's Ctx.X30 at it.
var idleLoop = func() {
	for {
		arm64.WaitForInterrupt()
	}
}

// switchFn performs the actual register save/restore. It is a variable
// rather than a direct call to arm64.Switch so hosted tests, which run on
// the host Go runtime's own stack and registers, can substitute a
// bookkeeping stand-in instead of genuinely swapping stack pointers out
// from under the test goroutine.
var switchFn = arm64.Switch

// Init resets the task table, installs the idle task in slot 0, and makes it
// current. now is the tick source schedule refreshes from (the hardware
// generic timer's tick count on real hardware).
func Init(now func() uint64) {
	Global = Sched{now: now}

	for i := range Global.tasks {
		Global.tasks[i] = task{state: Dead}
	}

	idle := &Global.tasks[0]
	idle.tid = 0
	idle.state = Ready
	idle.priority = idleTaskPriority
	idle.timeSlice = 1

	idle.stackBase = vm.AllocPage()
	if idle.stackBase == 0 {
		kernel.Panic(&kernel.Error{Module: "sched", Message: "failed to alloc idle stack"})
	}

	idle.ctx.SP = idle.stackBase + stackSize - 16
	idle.ctx.X30 = entryPointer(idleLoop)

	Global.idle = idle
	Global.current = idle
	Global.nextTID = 1
	Global.tickCount = 0
}

// Create installs a new READY task running entry at the given priority,
// with one allocated stack frame, and enqueues it on the ready ring. It
// returns 0 if the task table is full or the stack frame could not be
// allocated.
func Create(entry func(), priority uint32) uint32 {
	t := Global.allocTask()
	if t == nil {
		return 0
	}

	t.tid = Global.nextTID
	Global.nextTID++
	t.state = Ready
	t.priority = priority
	t.timeSlice = priority + 1
	t.sleepUntil = 0

	t.stackBase = vm.AllocPage()
	if t.stackBase == 0 {
		t.state = Dead
		return 0
	}

	t.ctx.SP = t.stackBase + stackSize - 16
	t.ctx.X30 = entryPointer(entry)

	Global.ready.enqueue(t)

	return t.tid
}

func (s *Sched) allocTask() *task {
	for i := range s.tasks {
		if s.tasks[i].state == Dead {
			return &s.tasks[i]
		}
	}
	return nil
}

// Exit marks the current task DEAD, frees its stack, and reschedules. The
// idle task can never exit.
func Exit() {
	cur := Global.current
	if cur == Global.idle {
		return
	}

	cur.state = Dead
	vm.FreePage(cur.stackBase)
	Global.current = nil

	Schedule()
}

// Yield marks a RUNNING current task READY, enqueues it, and reschedules.
func Yield() {
	cur := Global.current
	if cur.state == Running {
		cur.state = Ready
		Global.ready.enqueue(cur)
	}
	Schedule()
}

// Sleep refreshes tickCount from the timer source, marks the current task
// SLEEPING until tickCount+ms and reschedules. The idle task never sleeps.
func Sleep(ms uint64) {
	cur := Global.current
	if cur == Global.idle {
		return
	}

	if Global.now != nil {
		Global.tickCount = Global.now()
	}

	cur.state = Sleeping
	cur.sleepUntil = Global.tickCount + ms
	Schedule()
}

// Schedule refreshes tickCount from the timer source, wakes any sleeping
// task whose deadline has passed, selects the strictly-highest-priority
// ready task (falling back to idle), and context-switches into it if it
// differs from the current task.
func Schedule() {
	s := &Global

	if s.now != nil {
		s.tickCount = s.now()
	}

	for i := range s.tasks {
		t := &s.tasks[i]
		if t.state == Sleeping && t.sleepUntil <= s.tickCount {
			t.state = Ready
			s.ready.enqueue(t)
		}
	}

	next := s.ready.best()
	if next == nil {
		next = s.idle
	}

	if next == s.current {
		return
	}

	prev := s.current
	s.current = next

	if next != s.idle {
		s.ready.remove(next)
		next.state = Running
	}

	var prevCtx, nextCtx *arm64.Context
	if prev != nil {
		prevCtx = &prev.ctx
	} else {
		prevCtx = &arm64.Context{}
	}
	nextCtx = &next.ctx

	switchFn(prevCtx, nextCtx)
}

// TimerTick increments tickCount and, for a non-idle current task,
// decrements its time slice; on reaching zero the slice reloads, the task
// is demoted to READY and enqueued, and Schedule runs.
func TimerTick() {
	s := &Global
	s.tickCount++

	if s.current == s.idle {
		return
	}

	s.current.timeSlice--
	if s.current.timeSlice == 0 {
		s.current.timeSlice = s.current.priority + 1

		if s.current.state == Running {
			s.current.state = Ready
			s.ready.enqueue(s.current)
		}

		Schedule()
	}
}

// CurrentTID returns the currently running task's tid, or 0 if none.
func CurrentTID() uint32 {
	if Global.current == nil {
		return 0
	}
	return Global.current.tid
}
