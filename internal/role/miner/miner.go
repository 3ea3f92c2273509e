// Package miner implements the miner role (§4.9): a node.Handler that
// keeps a full Blockchain and Mempool, and runs a dedicated mining loop
// that assembles candidate blocks, hands them to the mining engine, and
// broadcasts whatever it successfully mines.
package miner

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/keys"
	"github.com/paper-piper/Dini/internal/mempool"
	"github.com/paper-piper/Dini/internal/mining"
	"github.com/paper-piper/Dini/internal/node"
	"github.com/paper-piper/Dini/internal/storage"
	"github.com/paper-piper/Dini/pkg/logging"
)

// Config holds the tuning knobs the miner role reads from
// internal/config.MinerConfig.
type Config struct {
	Difficulty    int
	Workers       int
	BlockBudget   int // -1 means mine forever
	MempoolSelect int
}

// Miner is a node.Handler implementing the full miner role. ServeNodeRequest
// and ProcessNodeData are inherited as no-ops from node.NopHandler: nothing
// in §4.9 asks a miner to participate in peer discovery, so it leaves that
// to the bootstrap role.
type Miner struct {
	node.NopHandler

	n       *node.Node
	store   *storage.Storage
	bundle  *keys.WellKnownBundle
	selfKey *keys.KeyPair
	engine  *mining.Engine
	cfg     Config
	log     *logging.Logger

	bc *chain.Blockchain
	mp *mempool.Mempool

	mu          sync.Mutex
	abortMining context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a miner, restoring its chain and mempool from store if
// either was previously persisted.
func New(store *storage.Storage, bundle *keys.WellKnownBundle, selfKey *keys.KeyPair, cfg Config, log *logging.Logger) (*Miner, error) {
	bc, err := loadChain(store)
	if err != nil {
		return nil, err
	}

	pending, err := loadMempool(store)
	if err != nil {
		return nil, err
	}
	mp := mempool.New()
	for _, tx := range pending {
		mp.Insert(tx)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Miner{
		store:   store,
		bundle:  bundle,
		selfKey: selfKey,
		engine:  mining.New(cfg.Workers),
		cfg:     cfg,
		log:     log.Component("miner"),
		bc:      bc,
		mp:      mp,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Attach gives the role a handle to its transport (§9 composition note).
func (m *Miner) Attach(n *node.Node) {
	m.n = n
}

// Start launches the dedicated mining-loop goroutine (§4.9, §5).
func (m *Miner) Start() error {
	m.wg.Add(1)
	go m.runMiningLoop()
	return nil
}

// Shutdown stops the mining loop and waits for it to exit.
func (m *Miner) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}

// Blockchain exposes the maintained chain, e.g. for status reporting.
func (m *Miner) Blockchain() *chain.Blockchain {
	return m.bc
}

// Mempool exposes the maintained mempool, e.g. for status reporting.
func (m *Miner) Mempool() *mempool.Mempool {
	return m.mp
}

// runMiningLoop repeats the five-step cycle from §4.9 until the block
// budget is exhausted or the miner is shut down.
func (m *Miner) runMiningLoop() {
	defer m.wg.Done()

	remaining := m.cfg.BlockBudget
	for {
		if m.ctx.Err() != nil {
			return
		}
		if remaining == 0 {
			m.log.Info("block budget exhausted, mining loop stopping")
			return
		}

		candidate, err := m.buildCandidate()
		if err != nil {
			m.log.Error("failed to build mining candidate", "error", err)
			return
		}

		miningCtx, cancel := context.WithCancel(m.ctx)
		m.mu.Lock()
		m.abortMining = cancel
		m.mu.Unlock()

		mined := m.engine.Mine(miningCtx, candidate, m.cfg.Difficulty)
		cancel()

		m.mu.Lock()
		m.abortMining = nil
		m.mu.Unlock()

		if mined == nil {
			// Either the process is shutting down or a new block arrived
			// mid-search; either way, loop back to a fresh candidate.
			continue
		}

		if !m.bc.FilterAndAddBlock(mined, m.bundle) {
			m.log.Warn("freshly mined block rejected, tip moved under us", "hash", mined.Hash)
			continue
		}

		height := uint64(m.bc.Len() - 1)
		m.mp.RemoveTransactions(mined.Transactions)
		if err := persistBlock(m.store, mined, height); err != nil {
			m.log.Error("failed to persist mined block", "error", err)
		}
		for _, tx := range mined.Transactions {
			if err := m.store.DeleteMempoolTransaction(tx.ID()); err != nil {
				m.log.Warn("failed to clear persisted mempool entry", "error", err)
			}
		}

		if err := m.n.BroadcastBlock(mined); err != nil {
			m.log.Error("failed to broadcast mined block", "error", err)
		}
		m.log.Info("mined block", "hash", mined.Hash, "height", height, "transactions", len(mined.Transactions))

		if remaining > 0 {
			remaining--
		}
	}
}

// buildCandidate assembles a candidate block: tip-ordered mempool
// selection, linked to the current chain tip, with tipping and bonus
// transactions paid to the miner's own key (§4.9 step 2).
func (m *Miner) buildCandidate() (*chain.Block, error) {
	txs := m.mp.SelectTransactions(m.cfg.MempoolSelect)
	tip := m.bc.GetLatestBlock()

	block := chain.NewBlock(tip.Hash, txs, m.cfg.Difficulty, time.Now().Unix())
	minerPK := m.selfPublicKey()

	if err := block.AddTippingTransaction(m.bundle, minerPK); err != nil {
		return nil, fmt.Errorf("add tipping transaction: %w", err)
	}
	if err := block.AddBonusTransaction(m.bundle, minerPK); err != nil {
		return nil, fmt.Errorf("add bonus transaction: %w", err)
	}
	return block, nil
}

func (m *Miner) selfPublicKey() *rsa.PublicKey {
	return m.selfKey.Public
}

// triggerAbort cancels the in-flight mining attempt, if any, so the loop
// rebuilds a candidate on the new tip (§4.9, §5 cancellation model).
func (m *Miner) triggerAbort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.abortMining != nil {
		m.abortMining()
	}
}

// ServeBlockchainRequest answers a catch-up request with the sub-chain
// after latestHash (§4.9).
func (m *Miner) ServeBlockchainRequest(latestHash string) (*chain.Blockchain, bool) {
	return m.bc.CreateSubBlockchain(latestHash), true
}

// ProcessBlockchainData walks the blocks after the miner's own tip,
// appending each that validates, and aborts any in-flight mining attempt
// so the next candidate is built on the advanced tip (§4.9).
func (m *Miner) ProcessBlockchainData(bc *chain.Blockchain) {
	myTip := m.bc.GetLatestBlock().Hash
	for _, b := range bc.GetBlocksAfter(myTip) {
		if !m.bc.FilterAndAddBlock(b, m.bundle) {
			break
		}
		height := uint64(m.bc.Len() - 1)
		m.mp.RemoveTransactions(b.Transactions)
		if err := persistBlock(m.store, b, height); err != nil {
			m.log.Error("failed to persist catch-up block", "error", err)
		}
	}
	m.triggerAbort()
}

// ProcessBlockData attempts to append a gossiped block. A successful
// append trips the abort signal and clears the block's transactions from
// the mempool; a rejected block is reported as "already seen" so the
// dispatch loop does not re-forward it (§4.7, §4.9).
func (m *Miner) ProcessBlockData(b *chain.Block) bool {
	if !m.bc.FilterAndAddBlock(b, m.bundle) {
		return false
	}

	height := uint64(m.bc.Len() - 1)
	m.mp.RemoveTransactions(b.Transactions)
	if err := persistBlock(m.store, b, height); err != nil {
		m.log.Error("failed to persist received block", "error", err)
	}
	for _, tx := range b.Transactions {
		if err := m.store.DeleteMempoolTransaction(tx.ID()); err != nil {
			m.log.Warn("failed to clear persisted mempool entry", "error", err)
		}
	}

	m.triggerAbort()
	return true
}

// ProcessTransactionData admits tx to the mempool if its signature
// verifies and it isn't already present (§4.9).
func (m *Miner) ProcessTransactionData(tx *chain.Transaction) bool {
	if !tx.IsValidForInclusion() {
		return false
	}
	if m.mp.Contains(tx) {
		return false
	}

	m.mp.Insert(tx)
	if err := persistMempoolTransaction(m.store, tx); err != nil {
		m.log.Error("failed to persist mempool transaction", "error", err)
	}
	return true
}
