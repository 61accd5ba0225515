package wifi

import (
	"crypto/sha1"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/pbkdf2"
)

// wpa2Iterations and wpa2KeyLen match the WPA2 standard's PSK derivation:
// PBKDF2-HMAC-SHA1 over the passphrase, salted with the SSID, 4096 rounds,
// truncated to a 256-bit PMK.
const (
	wpa2Iterations = 4096
	wpa2KeyLen     = 32
)

// derivePSK computes the WPA2 pairwise master key for (ssid, passphrase).
// The raw passphrase is never written to a device register or put on the
// wire; only the derived key is.
func derivePSK(ssid, passphrase string) [32]byte {
	raw := pbkdf2.Key([]byte(passphrase), []byte(ssid), wpa2Iterations, wpa2KeyLen, sha1.New)

	var key [32]byte
	copy(key[:], raw)
	return key
}

// Manifest is a signed allow-list of SSIDs a build may associate to. It
// mirrors the signed-firmware-manifest idea TamaGo boards use for their
// bundled configuration: rather than trusting any SSID an operator types in,
// Connect only proceeds if the SSID appears in a list countersigned by the
// key the manifest was built with.
type Manifest struct {
	pubKey  *btcec.PublicKey
	allowed map[string][]byte // ssid -> DER signature over the ssid bytes
}

// NewManifest builds a Manifest from a secp256k1 public key (33-byte
// compressed form) and a set of SSID -> DER-encoded ECDSA signature pairs,
// each a signature over the raw SSID bytes under the corresponding private
// key.
func NewManifest(pubKeyBytes []byte, entries map[string][]byte) (*Manifest, error) {
	pub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, errors.New("wifi: invalid manifest public key")
	}

	allowed := make(map[string][]byte, len(entries))
	for ssid, sig := range entries {
		allowed[ssid] = sig
	}

	return &Manifest{pubKey: pub, allowed: allowed}, nil
}

// Allow reports whether ssid carries a signature in the manifest that
// verifies against the manifest's public key. Connect calls this before any
// hardware access so an unsigned or tampered SSID never reaches the chip.
func (m *Manifest) Allow(ssid string) error {
	sigBytes, ok := m.allowed[ssid]
	if !ok {
		return errors.New("wifi: ssid not present in manifest")
	}

	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return errors.New("wifi: malformed manifest signature")
	}

	digest := sha1.Sum([]byte(ssid))
	if !sig.Verify(digest[:], m.pubKey) {
		return errors.New("wifi: manifest signature verification failed")
	}

	return nil
}
