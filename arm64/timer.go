//go:build arm64

package arm64

// defined in timer_arm64.s
func readCNTFRQ() uint64
func readCNTPCT() uint64
func writeCNTPTval(val uint64)
func writeCNTPCtl(val uint64)

// Timer wraps the ARM generic physical timer (EL1 physical timer, CNTP_*).
type Timer struct {
	// Rate is the counter frequency in Hz, read from CNTFRQ_EL0 by Init.
	Rate uint64
}

// Init reads the counter frequency. It must run once per core before any
// other Timer method.
func (t *Timer) Init() {
	t.Rate = readCNTFRQ()
}

// Now returns the current free-running counter value, in counter ticks.
func (t *Timer) Now() uint64 {
	return readCNTPCT()
}

// Ticks converts a duration in milliseconds to a counter tick count at this
// timer's rate; ArmPeriodic uses it to size the timer period.
func (t *Timer) Ticks(ms uint64) uint64 {
	return (t.Rate * ms) / 1000
}

// ArmPeriodic schedules the next physical timer interrupt periodMs
// milliseconds from now and unmasks the comparator, driving sched's
// TimerTick through the GIC's TimerPPI line.
func (t *Timer) ArmPeriodic(periodMs uint64) {
	writeCNTPTval(t.Ticks(periodMs))
	writeCNTPCtl(1) // ENABLE=1, IMASK=0, ISTATUS=0
}

// Stop masks the physical timer's interrupt output.
func (t *Timer) Stop() {
	writeCNTPCtl(2) // ENABLE=0, IMASK=1
}
