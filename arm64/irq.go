//go:build arm64

package arm64

// defined in irq_arm64.s
func irqEnable()
func irqDisable()
func wfi()

// EnableInterrupts unmasks IRQ delivery at this core (DAIF.I = 0).
func EnableInterrupts() {
	irqEnable()
}

// DisableInterrupts masks IRQ delivery at this core (DAIF.I = 1). kernel's
// default HaltFn calls it before parking the core.
func DisableInterrupts() {
	irqDisable()
}

// WaitForInterrupt parks the core in low-power state until the next
// interrupt, masked or not, is pending. Sched's idle task calls this in a
// loop rather than busy-waiting.
func WaitForInterrupt() {
	wfi()
}
