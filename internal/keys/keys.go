// Package keys manages RSA key material: per-node identity keys and the
// well-known (genesis, lord, tipping, bonus) keys shared by every node.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// KeySize is the RSA modulus size used for every keypair in the network.
const KeySize = 2048

// KeyPair holds a PEM-decoded RSA private/public pair.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// PublicPEM returns the PEM encoding of the public key.
func (kp *KeyPair) PublicPEM() ([]byte, error) {
	return MarshalPublicPEM(kp.Public)
}

// Generate creates a fresh RSA keypair.
func Generate() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// MarshalPrivatePEM encodes a private key as a PKCS#1 PEM block.
func MarshalPrivatePEM(priv *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
}

// MarshalPublicPEM encodes a public key as a PKIX PEM block.
func MarshalPublicPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}), nil
}

// ParsePrivatePEM decodes a PKCS#1 PEM block into a private key.
func ParsePrivatePEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM block")
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// ParsePublicPEM decodes a PKIX PEM block into a public key.
func ParsePublicPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaPub, nil
}

// LoadOrCreate loads a keypair from keyPath, generating and persisting a
// fresh one if the file does not exist.
func LoadOrCreate(keyPath string) (*KeyPair, error) {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	if data, err := os.ReadFile(keyPath); err == nil {
		priv, err := ParsePrivatePEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse existing key: %w", err)
		}
		return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
	}

	kp, err := Generate()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(keyPath, MarshalPrivatePEM(kp.Private), 0600); err != nil {
		return nil, fmt.Errorf("persist new key: %w", err)
	}

	return kp, nil
}
