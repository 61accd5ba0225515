// Package qemuvirt wires the kernel's components together for QEMU's
// aarch64 "virt" machine: it brings up the MMU, the frame pool, the
// scheduler, maps the three driver MMIO windows, and starts the worker
// tasks, the analogue of TamaGo's board/<vendor>/<board> packages and
// a traditional kernel's main entry point.
package qemuvirt

import (
	"github.com/Neptune-Developer/Comet-OS/arm64"
	"github.com/Neptune-Developer/Comet-OS/arm64/gic"
	"github.com/Neptune-Developer/Comet-OS/boot"
	"github.com/Neptune-Developer/Comet-OS/driver/fb"
	"github.com/Neptune-Developer/Comet-OS/driver/kprintf"
	"github.com/Neptune-Developer/Comet-OS/driver/uart"
	"github.com/Neptune-Developer/Comet-OS/driver/wifi"
	"github.com/Neptune-Developer/Comet-OS/kernel"
	"github.com/Neptune-Developer/Comet-OS/sched"
	"github.com/Neptune-Developer/Comet-OS/vm"
)

// QEMU virt's well-known physical MMIO addresses and the virtual addresses
// they are mapped at (1:1). All lie outside the 2 MiB identity range
// boot.Run installs: each driver's Init maps its own window, and Run maps
// the GICv3 windows with mapWindow.
const (
	uartPhysBase = 0x09000000
	uartVirtBase = 0x09000000

	fbPhysBase = 0x09010000
	fbVirtBase = 0x09010000
	fbWidth    = 640
	fbHeight   = 480
	fbStride   = fbWidth * 4

	gicdBase = 0x08000000
	gicdSize = 0x10000

	gicrBase = 0x080a0000
	gicrSize = 0x20000
)

// Board-configured network credentials. A real deployment would read these
// from provisioned storage rather than compiling them in; qemuvirt has none,
// so they stand in for it.
const (
	wifiSSID       = "qemuvirt"
	wifiPassphrase = "qemuvirt-default-psk"
)

// Peripheral instances, following TamaGo board packages' convention of
// package-level driver instances wired at fixed addresses.
var (
	UART0 = &uart.UART{PhysBase: uartPhysBase, VirtBase: uartVirtBase}
	FB0   = &fb.Framebuffer{
		PhysBase: fbPhysBase, VirtBase: fbVirtBase,
		Width: fbWidth, Height: fbHeight, Stride: fbStride, BPP: 32,
	}
	WIFI0   = &wifi.Device{}
	GIC     = &gic.GIC{GICD: gicdBase, GICR: gicrBase}
	Console *kprintf.Console
)

// workerPriority is the priority every board-started worker task runs at;
// inter-task priority policy is left to the board, so qemuvirt just runs
// its workers level.
const workerPriority = 1

// Run performs the full bring-up sequence: MMU, frame pool and identity
// map (boot.Run), the GICv3 distributor/redistributor, the UART and
// framebuffer windows, the scheduler, and the Wi-Fi driver's worker task,
// then enters the scheduler loop. bss is the linker-provided BSS range.
func Run(bss []uint64) {
	boot.Run(bss)

	if !mapWindow(gicdBase, gicdBase, gicdSize) || !mapWindow(gicrBase, gicrBase, gicrSize) {
		kernel.Panic(&kernel.Error{Module: "board", Message: "failed to map GICv3 windows"})
	}
	GIC.Init()

	if err := UART0.Init(); err != nil {
		kernel.Panic(&kernel.Error{Module: "board", Message: "uart init: " + err.Error()})
	}
	kernel.Default.SetSink(UART0)
	Console = kprintf.NewConsole(UART0)

	if err := FB0.Init(); err != nil {
		kernel.Default.Warn("board", "framebuffer unavailable: %s", err.Error())
	} else {
		FB0.Clear(0x000000)
	}

	cpu := &arm64.CPU{}
	cpu.Init()

	timer := &arm64.Timer{}
	timer.Init()

	sched.Init(func() uint64 { return timer.Now() * 1000 / timer.Rate })

	sched.Create(wifiWorker, workerPriority)

	Console.Printf("qemuvirt: boot complete, entering scheduler\n")
	Console.Flush()

	for {
		sched.Schedule()
		arm64.WaitForInterrupt()
	}
}

// mapWindow identity-maps a device window spanning size bytes, rounded up
// to whole pages.
func mapWindow(virt, phys uint64, size uint64) bool {
	for off := uint64(0); off < size; off += 4096 {
		if ok := vm.Map(virt+off, phys+off, vm.ProtRead|vm.ProtWrite); !ok {
			return false
		}
	}
	return true
}

// wifiWorker brings up the Wi-Fi device and attempts one connection using
// a board-configured SSID/passphrase, then yields forever: a stand-in for
// whatever workload this kernel build actually wants, proving the driver
// is reachable from a scheduled task rather than only from Run's call
// stack.
func wifiWorker() {
	if err := WIFI0.Init(); err != nil {
		kernel.Default.Warn("wifi", "init failed: %s", err.Error())
		sched.Exit()
		return
	}

	if err := WIFI0.Connect(wifiSSID, wifiPassphrase); err != nil {
		kernel.Default.Warn("wifi", "connect failed: %s", err.Error())
	}

	for {
		sched.Sleep(1000)
		sched.Yield()
	}
}
