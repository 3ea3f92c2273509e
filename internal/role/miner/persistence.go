package miner

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/node"
	"github.com/paper-piper/Dini/internal/protocol"
	"github.com/paper-piper/Dini/internal/storage"
)

// encodeTransactions gob-encodes txs in their wire form, reusing
// node.TransactionToWire rather than duplicating the PEM-marshal logic.
func encodeTransactions(txs []*chain.Transaction) ([]byte, error) {
	wireTxs := make([]protocol.WireTransaction, len(txs))
	for i, tx := range txs {
		wt, err := node.TransactionToWire(tx)
		if err != nil {
			return nil, fmt.Errorf("miner: encode transaction %d: %w", i, err)
		}
		wireTxs[i] = wt
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wireTxs); err != nil {
		return nil, fmt.Errorf("miner: gob encode transactions: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeTransactions is the inverse of encodeTransactions.
func decodeTransactions(data []byte) ([]*chain.Transaction, error) {
	var wireTxs []protocol.WireTransaction
	if len(data) > 0 {
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wireTxs); err != nil {
			return nil, fmt.Errorf("miner: gob decode transactions: %w", err)
		}
	}

	txs := make([]*chain.Transaction, len(wireTxs))
	for i, wt := range wireTxs {
		tx, err := node.TransactionFromWire(wt)
		if err != nil {
			return nil, fmt.Errorf("miner: decode transaction %d: %w", i, err)
		}
		txs[i] = tx
	}
	return txs, nil
}

// loadChain rebuilds a Blockchain from every persisted block record,
// falling back to a fresh genesis-only chain when storage is empty.
func loadChain(store *storage.Storage) (*chain.Blockchain, error) {
	records, err := store.LoadChain()
	if err != nil {
		return nil, fmt.Errorf("miner: load chain: %w", err)
	}
	if len(records) == 0 {
		return chain.NewBlockchain(), nil
	}

	// Genesis is never persisted (persistBlock only sees accepted blocks of
	// height 1 and up), so it is put back in front of the stored records.
	blocks := make([]*chain.Block, 0, len(records)+1)
	if records[0].BlockHash != chain.GenesisBlock().Hash {
		blocks = append(blocks, chain.GenesisBlock())
	}
	for _, r := range records {
		txs, err := decodeTransactions(r.TransactionsGob)
		if err != nil {
			return nil, fmt.Errorf("miner: rebuild block %s: %w", r.BlockHash, err)
		}
		blocks = append(blocks, &chain.Block{
			PreviousHash: r.PreviousHash,
			Transactions: txs,
			Difficulty:   r.Difficulty,
			Timestamp:    r.Timestamp,
			Nonce:        r.Nonce,
			Hash:         r.BlockHash,
		})
	}
	return chain.NewBlockchainFromBlocks(blocks), nil
}

// persistBlock appends a newly accepted block to storage. height is the
// block's 0-based index in the chain, genesis being height 0.
func persistBlock(store *storage.Storage, b *chain.Block, height uint64) error {
	txGob, err := encodeTransactions(b.Transactions)
	if err != nil {
		return err
	}
	return store.SaveBlock(&storage.BlockRecord{
		BlockHash:       b.Hash,
		PreviousHash:    b.PreviousHash,
		Height:          height,
		Difficulty:      b.Difficulty,
		Nonce:           b.Nonce,
		Timestamp:       b.Timestamp,
		TransactionsGob: txGob,
	})
}

// loadMempool rebuilds pending transactions persisted from a prior run.
func loadMempool(store *storage.Storage) ([]*chain.Transaction, error) {
	records, err := store.LoadMempool()
	if err != nil {
		return nil, fmt.Errorf("miner: load mempool: %w", err)
	}

	txs := make([]*chain.Transaction, 0, len(records))
	for _, r := range records {
		var wt protocol.WireTransaction
		if err := protocol.DecodePayload(r.Payload, &wt); err != nil {
			return nil, fmt.Errorf("miner: decode mempool record %s: %w", r.SignaturePrefix, err)
		}
		tx, err := node.TransactionFromWire(wt)
		if err != nil {
			return nil, fmt.Errorf("miner: rebuild mempool transaction %s: %w", r.SignaturePrefix, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// persistMempoolTransaction upserts a single pending transaction.
func persistMempoolTransaction(store *storage.Storage, tx *chain.Transaction) error {
	wt, err := node.TransactionToWire(tx)
	if err != nil {
		return err
	}
	payload, err := protocol.EncodePayload(wt)
	if err != nil {
		return err
	}
	return store.SaveMempoolTransaction(&storage.MempoolRecord{
		SignaturePrefix: tx.ID(),
		Payload:         payload,
		Tip:             tx.Tip,
	})
}
