package sched

import (
	"testing"

	"github.com/Neptune-Developer/Comet-OS/arm64"
)

// fakeClock lets tests drive Schedule's tick refresh deterministically.
type fakeClock struct{ t uint64 }

func (c *fakeClock) now() uint64 { return c.t }

func withFakeSwitch(t *testing.T) *[][2]*arm64.Context {
	t.Helper()

	var calls [][2]*arm64.Context
	orig := switchFn
	switchFn = func(from, to *arm64.Context) {
		calls = append(calls, [2]*arm64.Context{from, to})
	}
	t.Cleanup(func() { switchFn = orig })

	return &calls
}

func TestInitInstallsIdleAsCurrent(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)

	if CurrentTID() != 0 {
		t.Fatalf("CurrentTID() = %d, want 0 (idle)", CurrentTID())
	}
	if Global.idle.state != Ready {
		t.Fatalf("idle state = %v, want Ready", Global.idle.state)
	}
	if Global.ready.head != nil {
		t.Fatalf("idle task must never be enqueued on the ready ring")
	}
}

func TestCreateAssignsMonotonicTIDsAndEnqueues(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)

	tid1 := Create(func() {}, 5)
	tid2 := Create(func() {}, 3)

	if tid1 != 1 || tid2 != 2 {
		t.Fatalf("tids = %d, %d, want 1, 2", tid1, tid2)
	}

	if Global.tasks[1].tid != 1 || Global.tasks[1].timeSlice != 6 {
		t.Fatalf("task 1 not initialized correctly: %+v", Global.tasks[1])
	}
}

func TestScheduleSelectsStrictlyHighestPriority(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)
	calls := withFakeSwitch(t)

	Create(func() {}, 1)
	Create(func() {}, 9)
	Create(func() {}, 5)

	Schedule()

	if CurrentTID() != 2 {
		t.Fatalf("CurrentTID() = %d, want 2 (priority 9)", CurrentTID())
	}
	if len(*calls) != 1 {
		t.Fatalf("switchFn called %d times, want 1", len(*calls))
	}
}

func TestScheduleTiesFavorFirstSeen(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)
	withFakeSwitch(t)

	Create(func() {}, 4)
	Create(func() {}, 4)

	Schedule()

	if CurrentTID() != 1 {
		t.Fatalf("CurrentTID() = %d, want 1 (first of equal priority)", CurrentTID())
	}
}

func TestScheduleFallsBackToIdleWhenRingEmpty(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)
	withFakeSwitch(t)

	if CurrentTID() != 0 {
		t.Fatalf("CurrentTID() = %d, want 0", CurrentTID())
	}

	Schedule()

	if CurrentTID() != 0 {
		t.Fatalf("CurrentTID() after Schedule on empty ring = %d, want 0", CurrentTID())
	}
}

func TestSleepWakesOnDeadline(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)
	withFakeSwitch(t)

	tid := Create(func() {}, 1)
	Schedule()
	if CurrentTID() != tid {
		t.Fatalf("CurrentTID() = %d, want %d", CurrentTID(), tid)
	}
	Global.current.state = Running

	clock.t = 5
	Sleep(10)

	if Global.tasks[1].state != Sleeping {
		t.Fatalf("task state = %v, want Sleeping", Global.tasks[1].state)
	}
	if Global.tasks[1].sleepUntil != 15 {
		t.Fatalf("sleepUntil = %d, want 15", Global.tasks[1].sleepUntil)
	}

	// Not yet due: idle keeps running.
	clock.t = 14
	Schedule()
	if CurrentTID() != 0 {
		t.Fatalf("CurrentTID() = %d before deadline, want 0 (idle)", CurrentTID())
	}

	// Due: task wakes and is selected again.
	clock.t = 15
	Schedule()
	if CurrentTID() != tid {
		t.Fatalf("CurrentTID() = %d at deadline, want %d", CurrentTID(), tid)
	}
}

func TestIdleNeverSleepsOrExits(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)
	withFakeSwitch(t)

	Sleep(100)
	if Global.idle.state != Ready {
		t.Fatalf("idle state mutated by Sleep: %v", Global.idle.state)
	}

	Exit()
	if Global.idle.state != Ready {
		t.Fatalf("idle state mutated by Exit: %v", Global.idle.state)
	}
}

func TestTimerTickPreemptsOnSliceExhaustion(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)
	withFakeSwitch(t)

	tid := Create(func() {}, 0) // timeSlice = 1
	Schedule()
	if CurrentTID() != tid {
		t.Fatalf("CurrentTID() = %d, want %d", CurrentTID(), tid)
	}
	Global.current.state = Running

	TimerTick()

	if Global.tasks[1].state != Ready {
		t.Fatalf("preempted task state = %v, want Ready", Global.tasks[1].state)
	}
	if Global.tasks[1].timeSlice != 1 {
		t.Fatalf("reloaded timeSlice = %d, want 1", Global.tasks[1].timeSlice)
	}
}

func TestYieldRequeuesRunningTask(t *testing.T) {
	clock := &fakeClock{}
	Init(clock.now)
	withFakeSwitch(t)

	a := Create(func() {}, 2)
	b := Create(func() {}, 2)

	Schedule()
	if CurrentTID() != a {
		t.Fatalf("CurrentTID() = %d, want %d", CurrentTID(), a)
	}
	Global.current.state = Running

	Yield()

	if CurrentTID() != b {
		t.Fatalf("CurrentTID() after Yield = %d, want %d", CurrentTID(), b)
	}
}
