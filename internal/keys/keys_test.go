package keys

import (
	"path/filepath"
	"testing"
)

func TestGenerateProducesUsableKeyPair(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if kp.Private == nil || kp.Public == nil {
		t.Fatal("Generate() returned incomplete keypair")
	}
	if kp.Private.N.Cmp(kp.Public.N) != 0 {
		t.Error("private and public modulus mismatch")
	}
}

func TestPEMRoundtrip(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	privPEM := MarshalPrivatePEM(kp.Private)
	parsedPriv, err := ParsePrivatePEM(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivatePEM() error = %v", err)
	}
	if parsedPriv.N.Cmp(kp.Private.N) != 0 {
		t.Error("private key roundtrip mismatch")
	}

	pubPEM, err := MarshalPublicPEM(kp.Public)
	if err != nil {
		t.Fatalf("MarshalPublicPEM() error = %v", err)
	}
	parsedPub, err := ParsePublicPEM(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicPEM() error = %v", err)
	}
	if parsedPub.N.Cmp(kp.Public.N) != 0 {
		t.Error("public key roundtrip mismatch")
	}
}

func TestLoadOrCreatePersists(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "identity.pem")

	first, err := LoadOrCreate(keyPath)
	if err != nil {
		t.Fatalf("LoadOrCreate() error = %v", err)
	}

	second, err := LoadOrCreate(keyPath)
	if err != nil {
		t.Fatalf("LoadOrCreate() second call error = %v", err)
	}

	if first.Private.N.Cmp(second.Private.N) != 0 {
		t.Error("LoadOrCreate() did not persist the same key across calls")
	}
}

func TestLoadOrCreateBundleIsStableAndComplete(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "wellknown.pem")

	b1, err := LoadOrCreateBundle(bundlePath)
	if err != nil {
		t.Fatalf("LoadOrCreateBundle() error = %v", err)
	}
	if b1.Genesis == nil || b1.Lord == nil || b1.Tipping == nil || b1.Bonus == nil {
		t.Fatal("bundle missing one or more well-known keys")
	}

	b2, err := LoadOrCreateBundle(bundlePath)
	if err != nil {
		t.Fatalf("LoadOrCreateBundle() second call error = %v", err)
	}

	if b1.Lord.Private.N.Cmp(b2.Lord.Private.N) != 0 {
		t.Error("reloaded bundle lord key differs from original")
	}
	if b1.Genesis.Private.N.Cmp(b2.Genesis.Private.N) != 0 {
		t.Error("reloaded bundle genesis key differs from original")
	}
}

func TestWellKnownBundleClassification(t *testing.T) {
	dir := t.TempDir()
	b, err := LoadOrCreateBundle(filepath.Join(dir, "wellknown.pem"))
	if err != nil {
		t.Fatalf("LoadOrCreateBundle() error = %v", err)
	}

	if !b.IsLordKey(b.Lord.Public) {
		t.Error("IsLordKey(lord) = false, want true")
	}
	if b.IsLordKey(b.Tipping.Public) {
		t.Error("IsLordKey(tipping) = true, want false")
	}

	ordinary, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if b.IsReservedKey(ordinary.Public) {
		t.Error("IsReservedKey(ordinary) = true, want false")
	}
	if !b.IsReservedKey(b.Bonus.Public) {
		t.Error("IsReservedKey(bonus) = false, want true")
	}
}
