// Package wallet implements the light-chain wallet state machine (§3,
// §4.11): a per-user view of the blockchain that tracks only the owner's
// balance and the transactions that touch them, without holding the full
// chain.
package wallet

import (
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/keys"
)

// ActionType classifies a wallet Action by how the underlying transaction
// relates to the owner.
type ActionType string

// The closed set of action types.
const (
	ActionBuy      ActionType = "buy"
	ActionSell     ActionType = "sell"
	ActionTransfer ActionType = "transfer"
	ActionMine     ActionType = "mine"
	ActionTip      ActionType = "tip"
)

// ActionStatus is the lifecycle state of an Action.
type ActionStatus string

// The closed set of action statuses. ActionFailed is reachable only in
// theory: nothing in normal operation transitions an Action to it (§9
// open question 2).
const (
	ActionPending  ActionStatus = "pending"
	ActionApproved ActionStatus = "approved"
	ActionFailed   ActionStatus = "failed"
)

// Action is a wallet-side record of a transaction touching the owner.
type Action struct {
	ID        string
	Type      ActionType
	Amount    uint64
	Status    ActionStatus
	Timestamp int64
	Details   string
}

// Wallet is the light-chain view kept by the user role: an
// owner key, a running balance, the hash of the last applied block, and
// the map of Actions derived from transactions touching the owner.
type Wallet struct {
	mu         sync.RWMutex
	owner      *rsa.PublicKey
	bundle     *keys.WellKnownBundle
	balance    int64
	latestHash string
	actions    map[string]*Action
}

// New returns a wallet for owner, rooted at the genesis block.
func New(owner *rsa.PublicKey, bundle *keys.WellKnownBundle) *Wallet {
	return &Wallet{
		owner:      owner,
		bundle:     bundle,
		latestHash: chain.GenesisBlock().Hash,
		actions:    make(map[string]*Action),
	}
}

// Owner returns the wallet's owner public key.
func (w *Wallet) Owner() *rsa.PublicKey {
	return w.owner
}

// Balance returns the current balance. The spec does not forbid it going
// negative: there is no pre-broadcast balance check anywhere in this
// system (§9 open question 1), so none is added here either.
func (w *Wallet) Balance() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// LatestHash returns the hash of the last block this wallet has applied.
func (w *Wallet) LatestHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latestHash
}

// SetLatestHash overrides the wallet's notion of its chain tip. The user
// role does not call it on startup; a restarted wallet begins at genesis.
func (w *Wallet) SetLatestHash(hash string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.latestHash = hash
}

// Action returns the action with the given ID, or nil if none exists.
func (w *Wallet) Action(id string) *Action {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.actions[id]
}

// PutAction inserts or overwrites an action record, used both for pending
// registration and for restoring persisted state.
func (w *Wallet) PutAction(a *Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actions[a.ID] = a
}

// RecentActions returns the n most recently timestamped actions,
// descending.
func (w *Wallet) RecentActions(n int) []*Action {
	w.mu.RLock()
	defer w.mu.RUnlock()

	all := make([]*Action, 0, len(w.actions))
	for _, a := range w.actions {
		all = append(all, a)
	}
	sortActionsByTimestampDesc(all)

	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

func sortActionsByTimestampDesc(actions []*Action) {
	for i := 1; i < len(actions); i++ {
		for j := i; j > 0 && actions[j].Timestamp > actions[j-1].Timestamp; j-- {
			actions[j], actions[j-1] = actions[j-1], actions[j]
		}
	}
}

// RegisterPending records a freshly initiated Action with status pending,
// before the owning transaction has been broadcast. Called by
// buy/sell/transfer before the network ever sees the transaction.
func (w *Wallet) RegisterPending(id string, actionType ActionType, amount uint64, details string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actions[id] = &Action{
		ID:        id,
		Type:      actionType,
		Amount:    amount,
		Status:    ActionPending,
		Timestamp: time.Now().Unix(),
		Details:   details,
	}
}

// relevant reports whether tx touches the owner as sender or recipient.
func (w *Wallet) relevant(tx *chain.Transaction) bool {
	return publicKeysEqual(tx.SenderPK, w.owner) || publicKeysEqual(tx.RecipientPK, w.owner)
}

func publicKeysEqual(a, b *rsa.PublicKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.E == b.E && a.N.Cmp(b.N) == 0
}

// classify determines the Action type for a transaction the wallet has not
// seen before, by matching sender/recipient against the well-known keys.
func (w *Wallet) classify(tx *chain.Transaction) ActionType {
	switch {
	case w.bundle.IsLordKey(tx.SenderPK):
		return ActionBuy
	case w.bundle.IsLordKey(tx.RecipientPK):
		return ActionSell
	case w.bundle.IsBonusKey(tx.SenderPK):
		return ActionMine
	case w.bundle.IsTippingKey(tx.SenderPK):
		return ActionTip
	default:
		return ActionTransfer
	}
}

// FilterAndAddTransaction applies tx to the wallet per §4.11: irrelevant
// transactions are discarded without recording; relevant ones adjust the
// balance (the owner as sender pays amount plus tip, the owner as
// recipient receives amount) and either approve a pending Action of the same ID or create a
// fresh approved one classified by sender/recipient.
//
// Returns "irrelevant" if tx does not touch the owner, "applied" otherwise.
func (w *Wallet) FilterAndAddTransaction(tx *chain.Transaction) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.relevant(tx) {
		return "irrelevant"
	}

	if publicKeysEqual(tx.SenderPK, w.owner) {
		w.balance -= int64(tx.Amount + tx.Tip)
	}
	if publicKeysEqual(tx.RecipientPK, w.owner) {
		w.balance += int64(tx.Amount)
	}

	id := tx.ID()
	if existing, ok := w.actions[id]; ok {
		existing.Status = ActionApproved
		return "applied"
	}

	w.actions[id] = &Action{
		ID:        id,
		Type:      w.classify(tx),
		Amount:    tx.Amount,
		Status:    ActionApproved,
		Timestamp: time.Now().Unix(),
	}
	return "applied"
}

// FilterAndAddBlock applies block to the wallet per §4.11. If the block
// does not link to the wallet's current tip, it is rejected ("rejected")
// without mutating any state — the caller is expected to resolve the gap
// via a blockchain catch-up request. Otherwise every transaction in the
// block is run through FilterAndAddTransaction and the tip advances
// ("new").
func (w *Wallet) FilterAndAddBlock(b *chain.Block) string {
	w.mu.Lock()
	if b.PreviousHash != w.latestHash {
		w.mu.Unlock()
		return "rejected"
	}
	w.latestHash = b.Hash
	w.mu.Unlock()

	for _, tx := range b.Transactions {
		w.FilterAndAddTransaction(tx)
	}
	return "new"
}

// String renders a short human-readable summary, handy for status logging.
func (w *Wallet) String() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fmt.Sprintf("wallet(balance=%d, actions=%d, tip=%s)", w.balance, len(w.actions), shortHash(w.latestHash))
}

func shortHash(h string) string {
	if len(h) <= 10 {
		return h
	}
	return h[:10]
}
