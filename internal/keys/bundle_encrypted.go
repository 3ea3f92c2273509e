package keys

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paper-piper/Dini/internal/xcrypto"
)

// LoadOrCreateEncryptedBundle is LoadOrCreateBundle's passphrase-protected
// counterpart: the same four-key PEM bundle, sealed at rest with
// internal/xcrypto rather than written in plaintext. An empty passphrase
// is rejected rather than silently falling back to plaintext, so a
// misconfigured deployment fails loudly instead of leaking key material.
func LoadOrCreateEncryptedBundle(bundlePath, passphrase string) (*WellKnownBundle, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("keys: passphrase required for encrypted bundle")
	}

	if blob, err := os.ReadFile(bundlePath); err == nil {
		data, err := xcrypto.Open(passphrase, blob)
		if err != nil {
			return nil, fmt.Errorf("keys: open encrypted bundle: %w", err)
		}
		return parseBundle(data)
	}

	if err := os.MkdirAll(filepath.Dir(bundlePath), 0700); err != nil {
		return nil, fmt.Errorf("keys: create bundle directory: %w", err)
	}

	b := &WellKnownBundle{}
	var plain []byte
	for _, role := range roleOrder {
		kp, err := Generate()
		if err != nil {
			return nil, fmt.Errorf("keys: generate %s key: %w", role, err)
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
		plain = append(plain, pem.EncodeToMemory(&pem.Block{
			Type:    "RSA PRIVATE KEY",
			Headers: map[string]string{"X-Dini-Role": role},
			Bytes:   x509.MarshalPKCS1PrivateKey(kp.Private),
		})...)
	}

	sealed, err := xcrypto.Seal(passphrase, plain)
	if err != nil {
		return nil, fmt.Errorf("keys: seal bundle: %w", err)
	}
	if err := os.WriteFile(bundlePath, sealed, 0600); err != nil {
		return nil, fmt.Errorf("keys: persist encrypted bundle: %w", err)
	}

	return b, nil
}
