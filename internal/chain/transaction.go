// Package chain implements the Dini transaction, block, and blockchain
// model: hashing, signing, validation, and chain linkage.
package chain

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/paper-piper/Dini/internal/keys"
)

const sha256FnHash = crypto.SHA256

// IDLength is the number of hex characters of a signature used as an
// Action/mempool identity.
const IDLength = 8

// Transaction is a signed value transfer between two RSA public keys.
type Transaction struct {
	SenderPK    *rsa.PublicKey
	RecipientPK *rsa.PublicKey
	Amount      uint64
	Tip         uint64
	Signature   []byte
}

// NewTransaction builds an unsigned transaction.
func NewTransaction(sender, recipient *rsa.PublicKey, amount, tip uint64) *Transaction {
	return &Transaction{
		SenderPK:    sender,
		RecipientPK: recipient,
		Amount:      amount,
		Tip:         tip,
	}
}

// Hash returns the stable SHA-256 hash of the transaction's canonical
// content. It is independent of the signature so sign/verify operate over
// the same value.
func (t *Transaction) Hash() ([]byte, error) {
	senderPEM, err := keys.MarshalPublicPEM(t.SenderPK)
	if err != nil {
		return nil, fmt.Errorf("marshal sender key: %w", err)
	}
	recipientPEM, err := keys.MarshalPublicPEM(t.RecipientPK)
	if err != nil {
		return nil, fmt.Errorf("marshal recipient key: %w", err)
	}

	data := fmt.Sprintf("%s%s%d%d", senderPEM, recipientPEM, t.Amount, t.Tip)
	sum := sha256.Sum256([]byte(data))
	return sum[:], nil
}

// Sign computes the transaction hash and signs it with RSA-PSS/SHA-256
// using the sender's private key.
func (t *Transaction) Sign(priv *rsa.PrivateKey) error {
	if priv == nil {
		return fmt.Errorf("chain: private key required to sign transaction")
	}

	hash, err := t.Hash()
	if err != nil {
		return err
	}

	sig, err := rsa.SignPSS(rand.Reader, priv, sha256FnHash, hash, nil)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	t.Signature = sig
	return nil
}

// VerifySignature reports whether the transaction's signature is valid for
// its sender public key. It fails closed: any error or missing signature
// returns false rather than propagating.
func (t *Transaction) VerifySignature() bool {
	if len(t.Signature) == 0 {
		return false
	}

	hash, err := t.Hash()
	if err != nil {
		return false
	}

	err = rsa.VerifyPSS(t.SenderPK, sha256FnHash, hash, t.Signature, nil)
	return err == nil
}

// ID returns the transaction's identity for mempool deduplication and
// wallet Action keying: the first IDLength hex characters of its
// signature.
func (t *Transaction) ID() string {
	hexSig := hex.EncodeToString(t.Signature)
	if len(hexSig) < IDLength {
		return hexSig
	}
	return hexSig[:IDLength]
}

// IsValidForInclusion reports whether the transaction verifies and has a
// positive amount. Tipping and bonus transactions are exempt from this
// check at the call site (see Block.ValidateBlock).
func (t *Transaction) IsValidForInclusion() bool {
	return t.Amount > 0 && t.VerifySignature()
}

// Equal reports whether two transactions have the same signature, amount
// and tip; the sender and recipient keys are not compared.
func (t *Transaction) Equal(other *Transaction) bool {
	if other == nil {
		return false
	}
	return subtle.ConstantTimeCompare(t.Signature, other.Signature) == 1 && t.Amount == other.Amount && t.Tip == other.Tip
}
