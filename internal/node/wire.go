package node

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/keys"
	"github.com/paper-piper/Dini/internal/protocol"
)

// newMessageID generates a UUID for correlating a diagnostic probe's
// request and response (see Ping in dispatch.go).
func newMessageID() string {
	return uuid.NewString()
}

// TransactionToWire converts a domain transaction to its wire form.
func TransactionToWire(tx *chain.Transaction) (protocol.WireTransaction, error) {
	senderPEM, err := keys.MarshalPublicPEM(tx.SenderPK)
	if err != nil {
		return protocol.WireTransaction{}, fmt.Errorf("marshal sender key: %w", err)
	}
	recipientPEM, err := keys.MarshalPublicPEM(tx.RecipientPK)
	if err != nil {
		return protocol.WireTransaction{}, fmt.Errorf("marshal recipient key: %w", err)
	}

	return protocol.WireTransaction{
		SenderPEM:    senderPEM,
		RecipientPEM: recipientPEM,
		Amount:       tx.Amount,
		Tip:          tx.Tip,
		Signature:    tx.Signature,
	}, nil
}

// TransactionFromWire converts a wire transaction back to its domain form.
func TransactionFromWire(w protocol.WireTransaction) (*chain.Transaction, error) {
	sender, err := keys.ParsePublicPEM(w.SenderPEM)
	if err != nil {
		return nil, fmt.Errorf("parse sender key: %w", err)
	}
	recipient, err := keys.ParsePublicPEM(w.RecipientPEM)
	if err != nil {
		return nil, fmt.Errorf("parse recipient key: %w", err)
	}

	return &chain.Transaction{
		SenderPK:    sender,
		RecipientPK: recipient,
		Amount:      w.Amount,
		Tip:         w.Tip,
		Signature:   w.Signature,
	}, nil
}

// BlockToWire converts a domain block to its wire form.
func BlockToWire(b *chain.Block) (protocol.WireBlock, error) {
	wireTxs := make([]protocol.WireTransaction, len(b.Transactions))
	for i, tx := range b.Transactions {
		wt, err := TransactionToWire(tx)
		if err != nil {
			return protocol.WireBlock{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		wireTxs[i] = wt
	}

	return protocol.WireBlock{
		PreviousHash: b.PreviousHash,
		Transactions: wireTxs,
		Difficulty:   b.Difficulty,
		Timestamp:    b.Timestamp,
		Nonce:        b.Nonce,
		Hash:         b.Hash,
	}, nil
}

// BlockFromWire converts a wire block back to its domain form.
func BlockFromWire(w protocol.WireBlock) (*chain.Block, error) {
	txs := make([]*chain.Transaction, len(w.Transactions))
	for i, wt := range w.Transactions {
		tx, err := TransactionFromWire(wt)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs[i] = tx
	}

	return &chain.Block{
		PreviousHash: w.PreviousHash,
		Transactions: txs,
		Difficulty:   w.Difficulty,
		Timestamp:    w.Timestamp,
		Nonce:        w.Nonce,
		Hash:         w.Hash,
	}, nil
}

// BlockchainToWire converts a domain blockchain to its wire form,
// dropping blocks that fail to convert rather than aborting the whole
// reply (mirrors the protocol's "log and drop" error disposition).
func BlockchainToWire(bc *chain.Blockchain) protocol.WireBlockchain {
	blocks := bc.Blocks()
	wireBlocks := make([]protocol.WireBlock, 0, len(blocks))
	for _, b := range blocks {
		wb, err := BlockToWire(b)
		if err != nil {
			continue
		}
		wireBlocks = append(wireBlocks, wb)
	}
	return protocol.WireBlockchain{Blocks: wireBlocks}
}

// BlockchainFromWire converts a wire blockchain back to its domain form.
func BlockchainFromWire(w protocol.WireBlockchain) *chain.Blockchain {
	blocks := make([]*chain.Block, 0, len(w.Blocks))
	for _, wb := range w.Blocks {
		b, err := BlockFromWire(wb)
		if err != nil {
			continue
		}
		blocks = append(blocks, b)
	}
	return chain.NewBlockchainFromBlocks(blocks)
}
