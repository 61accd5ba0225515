// Command qemuvirt is the kernel image entry point for QEMU's aarch64
// "virt" machine, the analogue of example/usb_ethernet.go's main package
// for TamaGo boards: it does nothing but hand off to the board package.
package main

import (
	"github.com/Neptune-Developer/Comet-OS/board/qemuvirt"
)

// bssPlaceholder stands in for the linker-provided __bss_start/__bss_end
// range a real boot object file supplies; a hosted build has no such
// symbols, so qemuvirt.Run's ClearBSS call zeroes this slice instead.
var bssPlaceholder [64]uint64

func main() {
	qemuvirt.Run(bssPlaceholder[:])
}
