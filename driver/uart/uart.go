// Package uart implements a minimal polled PL011-register-shaped serial
// port, mapped through vm.Map like any other MMIO device in this tree. It
// follows the same Init/Tx/Rx/Write/Read shape as board/qemu/microvm's
// 16550A driver, adapted from 8-bit I/O-port registers to the 32-bit
// memory-mapped registers real PL011 hardware (and QEMU's virt machine)
// exposes.
package uart

import (
	"errors"

	"github.com/Neptune-Developer/Comet-OS/internal/reg"
	"github.com/Neptune-Developer/Comet-OS/vm"
)

// PL011 register offsets, word-addressed.
const (
	regDR   = 0x00 // data register
	regFR   = 0x18 // flag register
	regIBRD = 0x24 // integer baud rate divisor
	regFBRD = 0x28 // fractional baud rate divisor
	regLCRH = 0x2c // line control
	regCR   = 0x30 // control register
	regIMSC = 0x38 // interrupt mask set/clear
)

const (
	frTXFF = 1 << 5 // transmit FIFO full
	frRXFE = 1 << 4 // receive FIFO empty

	lcrhFEN  = 1 << 4 // enable FIFOs
	lcrhWLEN = 3 << 5 // 8 data bits

	crUARTEN = 1 << 0
	crTXE    = 1 << 8
	crRXE    = 1 << 9
)

// UART represents one mapped serial port instance.
type UART struct {
	// PhysBase and VirtBase are the device's physical and mapped virtual
	// MMIO base addresses.
	PhysBase uint64
	VirtBase uint64

	base        uintptr
	initialized bool
}

// Init maps the device window and brings the port up at 115200 8N1, masking
// all interrupts: this driver is polled, matching kprintf's synchronous
// flush-a-character-at-a-time console writes.
func (u *UART) Init() error {
	if u.initialized {
		return nil
	}
	if u.VirtBase == 0 || u.PhysBase == 0 {
		return errors.New("uart: Base addresses not set")
	}

	if ok := vm.Map(u.VirtBase, u.PhysBase, vm.ProtRead|vm.ProtWrite); !ok {
		return errors.New("uart: failed to map device window")
	}

	u.base = uintptr(u.VirtBase)
	u.initialized = true

	reg.Write32(u.base+regCR, 0)
	reg.Write32(u.base+regIMSC, 0)
	reg.Write32(u.base+regIBRD, 26) // 48 MHz / (16 * 115200) ~= 26.04
	reg.Write32(u.base+regFBRD, 3)
	reg.Write32(u.base+regLCRH, lcrhFEN|lcrhWLEN)
	reg.Write32(u.base+regCR, crUARTEN|crTXE|crRXE)

	return nil
}

// Tx transmits a single byte, spinning on the flag register until the
// transmit FIFO has room.
func (u *UART) Tx(c byte) {
	for reg.Read32(u.base+regFR)&frTXFF != 0 {
	}
	reg.Write32(u.base+regDR, uint32(c))
}

// Rx receives a single byte, if one is waiting.
func (u *UART) Rx() (c byte, valid bool) {
	if reg.Read32(u.base+regFR)&frRXFE != 0 {
		return 0, false
	}
	return byte(reg.Read32(u.base + regDR)), true
}

// Write implements io.Writer by transmitting buf one byte at a time.
func (u *UART) Write(buf []byte) (n int, err error) {
	for n = 0; n < len(buf); n++ {
		if buf[n] == '\n' {
			u.Tx('\r')
		}
		u.Tx(buf[n])
	}
	return n, nil
}

// Read fills buf with whatever bytes are currently waiting, stopping early
// if the receive FIFO empties before buf is full.
func (u *UART) Read(buf []byte) (n int, err error) {
	var valid bool
	for n = 0; n < len(buf); n++ {
		buf[n], valid = u.Rx()
		if !valid {
			break
		}
	}
	return n, nil
}
