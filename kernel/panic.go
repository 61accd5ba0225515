package kernel

import (
	"fmt"

	"github.com/Neptune-Developer/Comet-OS/arm64"
)

// HaltFn is invoked by Panic once the condition has been logged. It is a
// variable, rather than a direct call, so tests (vm's W^X trap test) can
// substitute a non-spinning stand-in
// and observe that Panic was reached without hanging go test.
var HaltFn = func() {
	arm64.DisableInterrupts()
	for {
		arm64.WaitForInterrupt()
	}
}

var errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}

// Panic prints the given condition to the default logger and calls HaltFn.
// On real hardware HaltFn never returns, matching kernel_panic's contract in
// vm_pages.c/sched.c: callers in vm, sched and boot invoke it on any
// invariant violation instead of propagating an error up through code paths
// that have nowhere sane to unwind to.
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	default:
		errRuntimePanic.Message = fmt.Sprintf("%v", t)
		err = errRuntimePanic
	}

	Default.Error(err.Module, "%s", err.Message)
	Default.Error("kernel", "unrecoverable error: system halted")

	HaltFn()
}
