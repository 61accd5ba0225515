// Package wifi drives a memory-mapped 802.11 radio through a command/status
// register protocol, reached via vm.Map rather than a raw pointer so the
// device obeys the same page-level permission and TLB-invalidation
// discipline as any other mapping this kernel creates.
package wifi

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/Neptune-Developer/Comet-OS/dma"
	"github.com/Neptune-Developer/Comet-OS/internal/reg"
	"github.com/Neptune-Developer/Comet-OS/kernel"
	"github.com/Neptune-Developer/Comet-OS/vm"
)

// Register offsets, relative to the device's mapped base.
const (
	regCmd    = 0x00
	regStatus = 0x04
	regSSID   = 0x08
	regPSK    = 0x48
	regMAC    = 0x88
	regIP     = 0x90
	regSignal = 0x94
)

const (
	cmdScan       = 0x01
	cmdConnect    = 0x02
	cmdDisconnect = 0x03
	cmdGetIP      = 0x04
	cmdPing       = 0x05
)

const (
	statusIdle        = 0x00
	statusScanning    = 0x01
	statusConnecting  = 0x02
	statusConnected   = 0x03
	statusFailed      = 0x04
	statusDisconnected = 0x05
)

// PhysBase is the device's physical MMIO base address.
const PhysBase = 0xe0000000

// VirtBase is the virtual address this driver asks vm.Map to place the
// device window at.
const VirtBase = 0x10000000

const mmioWindowSize = 4096

// Device represents one mapped Wi-Fi radio instance.
type Device struct {
	base        uintptr
	initialized bool

	dmaRegion *dma.Region
	pingAddr  uint
	pingBuf   []byte
	limiter   *rate.Limiter

	manifest *Manifest
	net      *endpoint
}

// pingPayloadSize is the size of the staging buffer testConnection reserves
// from the DMA region for its probe target.
const pingPayloadSize = 64

// Init maps the device's MMIO window and resets the chip. It must be called
// once before Connect. limiter paces status-register polling: a bare delay
// busy loop is replaced with backoff so polling does not starve the one
// other CPU consumer, the scheduler.
func (d *Device) Init() error {
	if !d.initialized {
		if ok := vm.Map(VirtBase, PhysBase, vm.ProtRead|vm.ProtWrite); !ok {
			return errors.New("wifi: failed to map device window")
		}
		d.base = VirtBase
		d.initialized = true
		d.dmaRegion = dma.NewRegion(uint(VirtBase+mmioWindowSize), 64*1024)
		d.pingAddr, d.pingBuf = d.dmaRegion.Reserve(pingPayloadSize, 8)
		d.limiter = rate.NewLimiter(rate.Every(20*time.Millisecond), 1)
	}

	d.resetChip()

	if d.read32(regStatus) != statusIdle {
		return errors.New("wifi: chip did not return to idle after reset")
	}

	macLow := d.read32(regMAC)
	macHigh := d.read32(regMAC + 4)
	if macLow == 0 && macHigh == 0 {
		d.write32(regMAC, 0x12345678)
		d.write32(regMAC+4, 0x9abc0000)
	}

	return nil
}

func (d *Device) read32(offset uintptr) uint32 {
	return reg.Read32(d.base + offset)
}

func (d *Device) write32(offset uintptr, val uint32) {
	reg.Write32(d.base+offset, val)
}

func (d *Device) writeString(offset uintptr, s string, maxLen int) {
	buf := make([]byte, maxLen)
	n := copy(buf, s)
	if n >= maxLen {
		n = maxLen - 1
	}
	buf[n] = 0

	for i, b := range buf {
		reg.Write32(d.base+offset+uintptr(i), uint32(b))
	}
}

func (d *Device) resetChip() {
	d.write32(regCmd, 0xff)
	d.poll(50 * time.Millisecond)
	d.write32(regCmd, 0x00)
	d.poll(250 * time.Millisecond)
}

func (d *Device) poll(dur time.Duration) {
	deadline := dur
	for deadline > 0 {
		d.limiter.Wait(context.Background())
		deadline -= 20 * time.Millisecond
	}
}

// waitStatus polls the status register, backing off via the package's rate
// limiter instead of spinning, until it reads target, STATUS_FAILED, or
// timeout elapses.
func (d *Device) waitStatus(target uint32, timeout time.Duration) bool {
	elapsed := time.Duration(0)
	for elapsed < timeout {
		status := d.read32(regStatus)
		if status == target {
			return true
		}
		if status == statusFailed {
			return false
		}
		d.limiter.Wait(context.Background())
		elapsed += 20 * time.Millisecond
	}
	return false
}

func (d *Device) scan(ssid string) bool {
	d.writeString(regSSID, ssid, 32)
	d.write32(regCmd, cmdScan)

	if !d.waitStatus(statusScanning, 5*time.Second) {
		return false
	}
	return d.waitStatus(statusIdle, 15*time.Second)
}

// authenticate derives a WPA2-PSK key via PBKDF2-HMAC-SHA1 over (passphrase,
// ssid) before writing it to the PSK register, rather than writing the
// passphrase to the device in the clear.
func (d *Device) authenticate(ssid, passphrase string) bool {
	d.writeString(regSSID, ssid, 32)

	key := derivePSK(ssid, passphrase)
	d.writeKey(regPSK, key)

	d.write32(regCmd, cmdConnect)

	if !d.waitStatus(statusConnecting, 5*time.Second) {
		return false
	}
	return d.waitStatus(statusConnected, 30*time.Second)
}

func (d *Device) writeKey(offset uintptr, key [32]byte) {
	for i, b := range key {
		reg.Write32(d.base+offset+uintptr(i), uint32(b))
	}
}

func (d *Device) getIP() bool {
	d.write32(regCmd, cmdGetIP)
	d.poll(2 * time.Second)

	return d.read32(regIP) != 0
}

// testConnection stages the probe target 8.8.8.8 in the DMA staging
// buffer, writes the same address to WIFI_IP and issues CMD_PING. The
// staging buffer's address is not passed to the chip; the chip takes its
// probe target from WIFI_IP.
func (d *Device) testConnection() bool {
	for i := range d.pingBuf {
		d.pingBuf[i] = 0
	}
	d.dmaRegion.Write(d.pingAddr, 0, []byte{8, 8, 8, 8})

	d.write32(regIP, 0x08080808)
	d.write32(regCmd, cmdPing)
	d.poll(3 * time.Second)

	return d.read32(regStatus) == statusConnected
}

// Connect runs the scan -> authenticate -> get-IP -> ping-test sequence. If
// manifest is non-nil, ssid is checked against its signed allow-list before
// any hardware access.
func (d *Device) Connect(ssid, passphrase string) error {
	if ssid == "" {
		return errors.New("wifi: empty SSID")
	}

	if d.manifest != nil {
		if err := d.manifest.Allow(ssid); err != nil {
			return err
		}
	}

	if err := d.Init(); err != nil {
		return err
	}

	if d.read32(regStatus) == statusConnected {
		d.write32(regCmd, cmdDisconnect)
		d.waitStatus(statusIdle, 5*time.Second)
	}

	if !d.scan(ssid) {
		return errors.New("wifi: scan failed")
	}
	if !d.authenticate(ssid, passphrase) {
		return errors.New("wifi: authentication failed")
	}
	if !d.getIP() {
		return errors.New("wifi: no IP lease")
	}
	if !d.testConnection() {
		return errors.New("wifi: connectivity test failed")
	}

	if err := d.AttachStack(); err != nil {
		return err
	}

	kernel.Default.Info("wifi", "connected to %q", ssid)

	return nil
}

// Disconnect issues CMD_DISCONNECT and waits for the chip to return idle.
func (d *Device) Disconnect() {
	if !d.initialized {
		return
	}
	d.write32(regCmd, cmdDisconnect)
	d.waitStatus(statusIdle, 5*time.Second)
}

// IPAddr returns the last IP address reported by the chip, or 0.
func (d *Device) IPAddr() uint32 {
	if !d.initialized {
		return 0
	}
	return d.read32(regIP)
}

// SignalStrength returns the chip's last-reported signal quality.
func (d *Device) SignalStrength() uint32 {
	if !d.initialized {
		return 0
	}
	return d.read32(regSignal)
}

// IsConnected reports whether the chip's status register reads CONNECTED.
func (d *Device) IsConnected() bool {
	if !d.initialized {
		return false
	}
	return d.read32(regStatus) == statusConnected
}

// SetManifest attaches a signed SSID allow-list checked by Connect.
func (d *Device) SetManifest(m *Manifest) {
	d.manifest = m
}
