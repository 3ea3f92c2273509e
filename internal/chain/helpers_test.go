package chain

import (
	"crypto/rand"
	"crypto/rsa"
	"path/filepath"
	"testing"

	"github.com/paper-piper/Dini/internal/keys"
)

const testKeySize = 1024 // smaller than production KeySize to keep tests fast

type keyPairForTest struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

func newKeyPairForTest(t *testing.T) *keyPairForTest {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, testKeySize)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", err)
	}
	return &keyPairForTest{Private: priv, Public: &priv.PublicKey}
}

func newWellKnownBundleForTest(t *testing.T) *keys.WellKnownBundle {
	t.Helper()
	bundlePath := filepath.Join(t.TempDir(), "wellknown.pem")
	bundle, err := keys.LoadOrCreateBundle(bundlePath)
	if err != nil {
		t.Fatalf("LoadOrCreateBundle() error = %v", err)
	}
	return bundle
}

