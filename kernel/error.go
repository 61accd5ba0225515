// Package kernel provides the panic/halt escape hatch and the leveled
// logging facade shared by vm, sched, boot and the driver packages.
package kernel

// Error describes a fatal kernel-level error.
type Error struct {
	// Module names the subsystem that raised the error (e.g. "vm", "sched").
	Module string
	// Message is a short human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Module + ": " + e.Message
}
