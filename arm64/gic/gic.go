//go:build arm64

// Package gic implements a minimal driver for the ARM Generic Interrupt
// Controller (GICv3), sufficient to unmask and acknowledge the one periodic
// timer interrupt the scheduler's TimerTick depends on.
//
// The driver is based on the following reference specification:
//   - ARM IHI 0069G - ARM GIC Architecture Specification (v3 and v4)
package gic

import (
	"time"

	"github.com/Neptune-Developer/Comet-OS/internal/reg"
)

// GIC Distributor register map
// (p519, Table 12-25 Distributor register map, ARM IHI 0069G).
const (
	GICD_CTLR       = 0x000
	CTLR_ARE_NS     = 5
	CTLR_ARE_S      = 4
	CTLR_ENABLEGRP0 = 0

	GICD_TYPER    = 0x004
	TYPER_ITLINES = 0

	GICD_IGROUPR   = 0x0080
	GICD_ISENABLER = 0x0100
	GICD_ICENABLER = 0x0180
	GICD_ICPENDR   = 0x0280
	GICD_IROUTER   = 0x6100
)

// GIC Redistributor register map
// (p615, Table 12-27 Redistributor register map, ARM IHI 0069G).
const (
	RD_BASE  = 0x00000
	SGI_BASE = 0x10000

	GICR_WAKER            = RD_BASE + 0x0014
	WAKER_CHILDREN_ASLEEP = 2
	WAKER_PROCESSOR_SLEEP = 1

	GICR_IGROUPR = SGI_BASE + 0x0080
)

const (
	firstSGI = 0    // Software Generated Interrupts (SGI)
	firstPPI = 16   // Private Peripheral Interrupts (PPI)
	firstSPI = 32   // Shared Peripheral Interrupts (SPI)
	firstSIN = 1020 // Special Interrupt Numbers
)

// TimerPPI is the Private Peripheral Interrupt line of the ARM generic
// physical timer used to drive the scheduler's periodic tick.
const TimerPPI = 30

// GIC represents a Generic Interrupt Controller (GICv3) instance.
type GIC struct {
	// GICD is the Distributor base address (obtained via vm.Map).
	GICD uintptr
	// GICR is the Redistributor base address (obtained via vm.Map).
	GICR uintptr

	mpidr uint64
}

// defined in gic_arm64.s
func writeICCSreEL1(val uint64)
func writeICCIgrpen0EL1(val uint64)
func writeICCPmrEL1(val uint64)
func readICCIar0() uint64
func readMPIDREL1() uint64
func writeICCEoir0(val uint64)

// Init brings up the distributor and this core's redistributor frame,
// unmasking all interrupt priorities and enabling Group0 delivery.
func (hw *GIC) Init() {
	if hw.GICD == 0 || hw.GICR == 0 {
		panic("gic: invalid GIC instance")
	}

	reg.Clear32(hw.GICR+GICR_WAKER, WAKER_PROCESSOR_SLEEP)

	if !reg.WaitFor(1*time.Second, hw.GICR+GICR_WAKER, WAKER_CHILDREN_ASLEEP, 1, 0) {
		panic("gic: could not wake redistributor")
	}

	itLinesNum := reg.Get32(hw.GICD+GICD_TYPER, TYPER_ITLINES, 0x1f) + 1

	for n := uint32(0); n < itLinesNum; n++ {
		reg.Write32(hw.GICD+GICD_ICENABLER+uintptr(4*n), 0xffffffff)
		reg.Write32(hw.GICD+GICD_ICPENDR+uintptr(4*n), 0xffffffff)
	}

	writeICCSreEL1(1)
	writeICCPmrEL1(0xff)
	writeICCIgrpen0EL1(1)

	reg.Set32(hw.GICD+GICD_CTLR, CTLR_ENABLEGRP0)
	reg.Set32(hw.GICD+GICD_CTLR, CTLR_ARE_NS)
	reg.Set32(hw.GICD+GICD_CTLR, CTLR_ARE_S)

	hw.mpidr = readMPIDREL1()
}

func (hw *GIC) irq(m int, enable bool) {
	if hw.GICD == 0 {
		return
	}

	var off uintptr
	n := uintptr(m / 32)
	i := m % 32

	if enable {
		if m < firstSPI {
			reg.Clear32(hw.GICR+GICR_IGROUPR+4*n, i)
		} else {
			reg.Write64(hw.GICD+GICD_IROUTER+uintptr(8*m), hw.mpidr)
			reg.Clear32(hw.GICD+GICD_IGROUPR+4*n, i)
		}

		off += GICD_ISENABLER
	} else {
		off += GICD_ICENABLER
	}

	if m < firstSPI {
		setBit32(hw.GICR+SGI_BASE+off+4*n, i, true)
	} else {
		setBit32(hw.GICD+off+4*n, i, true)
	}
}

func setBit32(addr uintptr, pos int, val bool) {
	if val {
		reg.Set32(addr, pos)
	} else {
		reg.Clear32(addr, pos)
	}
}

// EnableInterrupt unmasks forwarding of interrupt id to this core and assigns
// it to Group0.
func (hw *GIC) EnableInterrupt(id int) {
	hw.irq(id, true)
}

// DisableInterrupt masks forwarding of interrupt id to this core.
func (hw *GIC) DisableInterrupt(id int) {
	hw.irq(id, false)
}

// GetInterrupt returns and acknowledges the highest priority pending Group0
// interrupt, or firstSIN-or-above if none is pending.
func (hw *GIC) GetInterrupt() (id int) {
	if hw.GICD == 0 {
		return
	}

	m := readICCIar0() & 0xffffff

	if m < firstSIN {
		writeICCEoir0(m)
	}

	return int(m)
}
