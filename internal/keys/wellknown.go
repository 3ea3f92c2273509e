package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// roleOrder fixes the on-disk order of the well-known keys so the bundle
// file is stable across runs.
var roleOrder = []string{"genesis", "lord", "tipping", "bonus"}

// WellKnownBundle holds the four RSA keypairs shared out-of-band by every
// node in the network: genesis, lord, tipping, bonus. Once loaded, a
// bundle must never be mutated.
type WellKnownBundle struct {
	Genesis *KeyPair
	Lord    *KeyPair
	Tipping *KeyPair
	Bonus   *KeyPair
}

// IsLordKey reports whether pub is the well-known lord public key.
func (b *WellKnownBundle) IsLordKey(pub *rsa.PublicKey) bool {
	return publicKeysEqual(pub, b.Lord.Public)
}

// IsTippingKey reports whether pub is the well-known tipping public key.
func (b *WellKnownBundle) IsTippingKey(pub *rsa.PublicKey) bool {
	return publicKeysEqual(pub, b.Tipping.Public)
}

// IsBonusKey reports whether pub is the well-known bonus public key.
func (b *WellKnownBundle) IsBonusKey(pub *rsa.PublicKey) bool {
	return publicKeysEqual(pub, b.Bonus.Public)
}

// IsReservedKey reports whether pub is any of the lord, tipping, or bonus
// keys — the three keys that must never appear as an ordinary transaction's
// sender.
func (b *WellKnownBundle) IsReservedKey(pub *rsa.PublicKey) bool {
	return b.IsLordKey(pub) || b.IsTippingKey(pub) || b.IsBonusKey(pub)
}

func publicKeysEqual(a, b *rsa.PublicKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.E == b.E && a.N.Cmp(b.N) == 0
}

// LoadOrCreateBundle loads the well-known key bundle from bundlePath,
// generating and persisting a fresh bundle if the file is absent. The file
// holds four PKCS#1 PEM blocks distinguished by an "X-Dini-Role" header.
//
// Every node in a given network must be started with the same bundle file;
// this function only guarantees a single process sees a stable bundle
// across restarts, not agreement across the fleet.
func LoadOrCreateBundle(bundlePath string) (*WellKnownBundle, error) {
	if data, err := os.ReadFile(bundlePath); err == nil {
		return parseBundle(data)
	}

	if err := os.MkdirAll(filepath.Dir(bundlePath), 0700); err != nil {
		return nil, fmt.Errorf("create bundle directory: %w", err)
	}

	b := &WellKnownBundle{}
	var out []byte
	for _, role := range roleOrder {
		kp, err := Generate()
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", role, err)
		}
		switch role {
		case "genesis":
			b.Genesis = kp
		case "lord":
			b.Lord = kp
		case "tipping":
			b.Tipping = kp
		case "bonus":
			b.Bonus = kp
		}
		out = append(out, pem.EncodeToMemory(&pem.Block{
			Type:    "RSA PRIVATE KEY",
			Headers: map[string]string{"X-Dini-Role": role},
			Bytes:   x509.MarshalPKCS1PrivateKey(kp.Private),
		})...)
	}

	if err := os.WriteFile(bundlePath, out, 0600); err != nil {
		return nil, fmt.Errorf("persist key bundle: %w", err)
	}

	return b, nil
}

func parseBundle(data []byte) (*WellKnownBundle, error) {
	b := &WellKnownBundle{}
	rest := data
	seen := map[string]bool{}

	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		role := block.Headers["X-Dini-Role"]
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse %s key: %w", role, err)
		}
		kp := &KeyPair{Private: priv, Public: &priv.PublicKey}
		switch role {
		case "genesis":
			b.Genesis = kp
		case "lord":
			b.Lord = kp
		case "tipping":
			b.Tipping = kp
		case "bonus":
			b.Bonus = kp
		default:
			return nil, fmt.Errorf("unknown well-known key role %q", role)
		}
		seen[role] = true
	}

	for _, role := range roleOrder {
		if !seen[role] {
			return nil, fmt.Errorf("key bundle missing %q key", role)
		}
	}

	return b, nil
}
