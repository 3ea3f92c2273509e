package chain

import (
	"sync"

	"github.com/paper-piper/Dini/internal/keys"
)

// DefaultDifficulty is the fixed proof-of-work difficulty shared by every
// node; there is no retargeting in this system.
const DefaultDifficulty = 3

// genesisTimestamp is the fixed "time-zero" sentinel every node uses when
// building the genesis block, so the computed hash is identical everywhere
// without any negotiation.
const genesisTimestamp int64 = 0

var (
	genesisOnce  sync.Once
	genesisBlock *Block
)

// GenesisBlock returns the deterministic first block shared by every node.
// It has no previous hash, no transactions, and a fixed timestamp; its
// hash is computed once per process and is identical across processes
// because the inputs never vary.
func GenesisBlock() *Block {
	genesisOnce.Do(func() {
		b := &Block{
			PreviousHash: "",
			Transactions: nil,
			Difficulty:   0,
			Timestamp:    genesisTimestamp,
			Nonce:        0,
		}
		b.Hash = b.CalculateHash()
		genesisBlock = b
	})
	return genesisBlock
}

// Blockchain is an ordered sequence of blocks rooted at the genesis block.
type Blockchain struct {
	mu     sync.RWMutex
	blocks []*Block
}

// NewBlockchain returns a chain containing only the genesis block.
func NewBlockchain() *Blockchain {
	return &Blockchain{blocks: []*Block{GenesisBlock()}}
}

// NewBlockchainFromBlocks rebuilds a chain from a persisted sequence. The
// caller is responsible for ensuring blocks[0] is the genesis block.
func NewBlockchainFromBlocks(blocks []*Block) *Blockchain {
	return &Blockchain{blocks: blocks}
}

// Blocks returns a snapshot copy of the chain's blocks in order.
func (bc *Blockchain) Blocks() []*Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	out := make([]*Block, len(bc.blocks))
	copy(out, bc.blocks)
	return out
}

// Len returns the number of blocks in the chain, including genesis.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.blocks)
}

// GetLatestBlock returns the chain tip.
func (bc *Blockchain) GetLatestBlock() *Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.blocks[len(bc.blocks)-1]
}

// FilterAndAddBlock admits b iff its Hash field equals its recomputed
// hash, its proof-of-work is satisfied, its previous hash links to the
// current tip, and it validates per Block.ValidateBlock. It returns
// whether b was appended.
func (bc *Blockchain) FilterAndAddBlock(b *Block, bundle *keys.WellKnownBundle) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tip := bc.blocks[len(bc.blocks)-1]
	if b.CalculateHash() != b.Hash {
		return false
	}
	if !IsMined(b.Hash, b.Difficulty) {
		return false
	}
	if b.PreviousHash != tip.Hash {
		return false
	}
	if !b.ValidateBlock(bundle) {
		return false
	}

	bc.blocks = append(bc.blocks, b)
	return true
}

// GetBlocksAfter returns the tail of the chain strictly after the block
// identified by hash, or nil if hash is not found.
func (bc *Blockchain) GetBlocksAfter(hash string) []*Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	for i, b := range bc.blocks {
		if b.Hash == hash {
			out := make([]*Block, len(bc.blocks)-i-1)
			copy(out, bc.blocks[i+1:])
			return out
		}
	}
	return nil
}

// CreateSubBlockchain builds a chain consisting of genesis plus the tail of
// blocks strictly after hash, for serving a catch-up request. If hash is
// unknown, the sub-chain is genesis plus the full tail after genesis,
// letting the requesting peer filter out what it already has.
func (bc *Blockchain) CreateSubBlockchain(hash string) *Blockchain {
	tail := bc.GetBlocksAfter(hash)
	if tail == nil {
		tail = bc.GetBlocksAfter(GenesisBlock().Hash)
	}

	blocks := make([]*Block, 0, len(tail)+1)
	blocks = append(blocks, GenesisBlock())
	blocks = append(blocks, tail...)
	return NewBlockchainFromBlocks(blocks)
}

// IsChainValid recomputes proof-of-work, linkage, and block validity for
// every block from index 1 onward.
func (bc *Blockchain) IsChainValid(bundle *keys.WellKnownBundle) bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	for i := 1; i < len(bc.blocks); i++ {
		prev := bc.blocks[i-1]
		cur := bc.blocks[i]

		if cur.PreviousHash != prev.Hash {
			return false
		}
		if cur.CalculateHash() != cur.Hash {
			return false
		}
		if !IsMined(cur.Hash, cur.Difficulty) {
			return false
		}
		if !cur.ValidateBlock(bundle) {
			return false
		}
	}
	return true
}
