// Package mempool implements the in-memory set of pending transactions a
// miner has admitted but not yet mined into a block.
package mempool

import (
	"sort"
	"sync"

	"github.com/paper-piper/Dini/internal/chain"
)

// Mempool is a set of pending transactions keyed by structural identity
// (the transaction's signature-prefix ID). Insert is idempotent; there is
// no TTL, so a transaction persists until it is mined or explicitly
// removed.
type Mempool struct {
	mu  sync.RWMutex
	txs map[string]*chain.Transaction
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{txs: make(map[string]*chain.Transaction)}
}

// Insert adds tx to the mempool. Re-inserting a transaction already present
// (same ID) is a no-op and leaves the mempool's size unchanged.
func (m *Mempool) Insert(tx *chain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.ID()] = tx
}

// Contains reports whether a transaction with tx's ID is already present.
func (m *Mempool) Contains(tx *chain.Transaction) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.txs[tx.ID()]
	return ok
}

// Remove drops a single transaction by ID.
func (m *Mempool) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txs, id)
}

// RemoveTransactions drops every transaction in batch from the mempool. It
// is called immediately after a block containing them is accepted, whether
// mined locally or received from a peer.
func (m *Mempool) RemoveTransactions(batch []*chain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range batch {
		delete(m.txs, tx.ID())
	}
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// SelectTransactions returns up to n transactions ordered by tip
// descending. Ties are broken by ID so the ordering is stable across
// calls for an unchanged mempool.
func (m *Mempool) SelectTransactions(n int) []*chain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*chain.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		all = append(all, tx)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Tip != all[j].Tip {
			return all[i].Tip > all[j].Tip
		}
		return all[i].ID() < all[j].ID()
	})

	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// All returns every pending transaction in unspecified order.
func (m *Mempool) All() []*chain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*chain.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		out = append(out, tx)
	}
	return out
}
