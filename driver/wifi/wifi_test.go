package wifi

import (
	"testing"
	"time"
	"unsafe"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/time/rate"

	"github.com/Neptune-Developer/Comet-OS/internal/simmem"
)

// noWaitLimiter returns a rate.Limiter with an infinite rate, so Wait never
// actually blocks whatever the burst, and poll/waitStatus tests run at test speed rather
// than real wall-clock backoff speed.
func noWaitLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// testDevice backs a Device's register window with real host memory via
// simmem, the same arena vm's frame pool tests use, rather than going
// through vm.Map (which only manipulates page table bookkeeping and does
// not itself provide addressable memory in a hosted process).
func testDevice(t *testing.T) *Device {
	t.Helper()

	window := simmem.Bytes(0, mmioWindowSize)
	base := uintptr(unsafe.Pointer(&window[0]))

	return &Device{
		base:        base,
		initialized: true,
		limiter:     noWaitLimiter(),
	}
}

func TestResetChipWritesAndClearsCmd(t *testing.T) {
	d := testDevice(t)

	d.write32(regStatus, statusIdle)
	d.resetChip()

	if got := d.read32(regCmd); got != 0x00 {
		t.Fatalf("regCmd = %#x after resetChip, want 0", got)
	}
}

func TestWaitStatusObservesTarget(t *testing.T) {
	d := testDevice(t)
	d.write32(regStatus, statusConnected)

	if !d.waitStatus(statusConnected, time.Second) {
		t.Fatalf("waitStatus did not observe a target already set on entry")
	}
}

func TestWaitStatusReturnsFalseOnFailed(t *testing.T) {
	d := testDevice(t)
	d.write32(regStatus, statusFailed)

	if d.waitStatus(statusConnected, 100*time.Millisecond) {
		t.Fatalf("waitStatus = true on STATUS_FAILED, want false")
	}
}

func TestWriteStringTruncatesAndTerminates(t *testing.T) {
	d := testDevice(t)

	long := "this-ssid-is-far-too-long-to-fit-in-the-register-window"
	d.writeString(regSSID, long, 8)

	var got [8]byte
	for i := range got {
		got[i] = byte(d.read32(regSSID + uintptr(i)))
	}

	if got[7] != 0 {
		t.Fatalf("writeString did not null-terminate a truncated SSID: %v", got)
	}
}

func TestConnectRejectsEmptySSID(t *testing.T) {
	d := &Device{}

	if err := d.Connect("", "irrelevant"); err == nil {
		t.Fatalf("Connect(\"\") = nil, want error")
	}
}

func TestConnectRejectsSSIDNotInManifest(t *testing.T) {
	d := &Device{}

	m, err := NewManifest(manifestPubKeyForTest(t), nil)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	d.SetManifest(m)

	if err := d.Connect("unlisted-network", "passphrase"); err == nil {
		t.Fatalf("Connect with unlisted SSID and a manifest set = nil, want error")
	}
}

func TestIPAddrAndSignalStrengthBeforeInit(t *testing.T) {
	d := &Device{}

	if d.IPAddr() != 0 {
		t.Fatalf("IPAddr() before Init = %#x, want 0", d.IPAddr())
	}
	if d.SignalStrength() != 0 {
		t.Fatalf("SignalStrength() before Init = %#x, want 0", d.SignalStrength())
	}
	if d.IsConnected() {
		t.Fatalf("IsConnected() before Init = true, want false")
	}
}

// manifestPubKeyForTest returns a syntactically valid compressed secp256k1
// public key with no corresponding allow-list entries, enough to exercise
// the "SSID not present" rejection path.
func manifestPubKeyForTest(t *testing.T) []byte {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return priv.PubKey().SerializeCompressed()
}
