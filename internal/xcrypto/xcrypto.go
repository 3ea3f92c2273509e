// Package xcrypto wraps the well-known RSA key bundle (§6) at rest behind
// a passphrase, for operators who don't want the genesis/lord/tipping/
// bonus private keys sitting on disk in plaintext. It derives a
// symmetric key with scrypt and seals the bundle bytes with AES-GCM.
package xcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 16
	keySize  = 32 // AES-256
	scryptN  = 1 << 15
	scryptR  = 8
	scryptP  = 1
)

// Seal derives a key from passphrase and a fresh random salt, then
// encrypts plaintext with AES-256-GCM. The returned blob is
// salt || nonce || ciphertext, self-contained for a matching Open call.
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("xcrypto: generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("xcrypto: generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open reverses Seal, recovering plaintext given the matching passphrase.
func Open(passphrase string, blob []byte) ([]byte, error) {
	if len(blob) < saltSize {
		return nil, fmt.Errorf("xcrypto: blob too short to contain a salt")
	}
	salt := blob[:saltSize]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	rest := blob[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("xcrypto: blob too short to contain a nonce")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("xcrypto: decrypt: wrong passphrase or corrupt file: %w", err)
	}
	return plaintext, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("xcrypto: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("xcrypto: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("xcrypto: new GCM: %w", err)
	}
	return gcm, nil
}
