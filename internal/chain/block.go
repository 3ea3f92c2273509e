package chain

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/paper-piper/Dini/internal/keys"
)

// BonusAmount is the fixed block-reward amount paid to a miner.
const BonusAmount = 50

// Block is a container of transactions with a proof-of-work hash.
//
// Transaction ordering is fixed and semantically significant: index 0 is
// the tipping transaction, the last index is the bonus transaction, and
// everything between is ordinary.
type Block struct {
	PreviousHash string
	Transactions []*Transaction
	Difficulty   int
	Timestamp    int64
	Nonce        uint64
	Hash         string
}

// NewBlock builds a block with its ordinary transactions already set; the
// tipping and bonus transactions are added afterward via
// AddTippingTransaction/AddBonusTransaction.
func NewBlock(previousHash string, transactions []*Transaction, difficulty int, timestamp int64) *Block {
	return &Block{
		PreviousHash: previousHash,
		Transactions: transactions,
		Difficulty:   difficulty,
		Timestamp:    timestamp,
	}
}

// CalculateHash computes the block's SHA-256 hash over its canonical
// content. It does not mutate b.Hash; callers decide when to commit it.
func (b *Block) CalculateHash() string {
	var sb strings.Builder
	for _, tx := range b.Transactions {
		sb.WriteString(transactionRepr(tx))
	}
	data := fmt.Sprintf("%s%s%d%d%d", b.PreviousHash, sb.String(), b.Difficulty, b.Timestamp, b.Nonce)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// transactionRepr is the stable per-transaction fragment folded into a
// block's hash; it must change whenever any signed field of tx changes.
func transactionRepr(tx *Transaction) string {
	return fmt.Sprintf("%x|%x|%d|%d|%x", publicKeyFingerprint(tx.SenderPK), publicKeyFingerprint(tx.RecipientPK), tx.Amount, tx.Tip, tx.Signature)
}

func publicKeyFingerprint(pub *rsa.PublicKey) []byte {
	if pub == nil {
		return nil
	}
	sum := sha256.Sum256([]byte(pub.N.String()))
	return sum[:]
}

// IsMined reports whether hash begins with difficulty hex zero characters.
func IsMined(hash string, difficulty int) bool {
	if difficulty < 0 || difficulty > len(hash) {
		return false
	}
	return hash[:difficulty] == strings.Repeat("0", difficulty)
}

// AddTippingTransaction computes the sum of every ordinary transaction's
// tip, signs a transaction from the well-known tipping key to minerPK for
// that sum, and inserts it at index 0.
func (b *Block) AddTippingTransaction(bundle *keys.WellKnownBundle, minerPK *rsa.PublicKey) error {
	var tipSum uint64
	for _, tx := range b.Transactions {
		tipSum += tx.Tip
	}

	tippingTx := NewTransaction(bundle.Tipping.Public, minerPK, tipSum, 0)
	if err := tippingTx.Sign(bundle.Tipping.Private); err != nil {
		return fmt.Errorf("sign tipping transaction: %w", err)
	}

	b.Transactions = append([]*Transaction{tippingTx}, b.Transactions...)
	return nil
}

// AddBonusTransaction signs a fixed-reward transaction from the well-known
// bonus key to minerPK and appends it as the last transaction.
func (b *Block) AddBonusTransaction(bundle *keys.WellKnownBundle, minerPK *rsa.PublicKey) error {
	bonusTx := NewTransaction(bundle.Bonus.Public, minerPK, BonusAmount, 0)
	if err := bonusTx.Sign(bundle.Bonus.Private); err != nil {
		return fmt.Errorf("sign bonus transaction: %w", err)
	}

	b.Transactions = append(b.Transactions, bonusTx)
	return nil
}

// ValidateBlock enforces the §3 transaction invariants of a block:
// ordinary transactions verify and have a positive amount and never use a
// reserved key as sender; the tipping amount equals the exact sum of
// ordinary tips; the reward amount equals the fixed constant; and both
// boundary transactions use their well-known sender keys. Proof-of-work
// and the Hash field are checked by Blockchain.FilterAndAddBlock, not here.
func (b *Block) ValidateBlock(bundle *keys.WellKnownBundle) bool {
	if len(b.Transactions) < 2 {
		return false
	}

	tippingTx := b.Transactions[0]
	bonusTx := b.Transactions[len(b.Transactions)-1]
	ordinary := b.Transactions[1 : len(b.Transactions)-1]

	var tipSum uint64
	for _, tx := range ordinary {
		if bundle.IsReservedKey(tx.SenderPK) {
			return false
		}
		if tx.Amount == 0 {
			return false
		}
		if !tx.VerifySignature() {
			return false
		}
		tipSum += tx.Tip
	}

	if !bundle.IsTippingKey(tippingTx.SenderPK) {
		return false
	}
	if tippingTx.Amount != tipSum {
		return false
	}

	if !bundle.IsBonusKey(bonusTx.SenderPK) {
		return false
	}
	if bonusTx.Amount != BonusAmount {
		return false
	}

	return true
}
