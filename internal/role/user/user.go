// Package user implements the user role (§4.10): a node.Handler holding a
// light-chain Wallet, able to mint/burn/transfer dinis and catch up via
// blockchain requests, while never serving blockchain or transaction
// requests itself.
package user

import (
	"fmt"
	"time"

	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/keys"
	"github.com/paper-piper/Dini/internal/node"
	"github.com/paper-piper/Dini/internal/storage"
	"github.com/paper-piper/Dini/internal/wallet"
	"github.com/paper-piper/Dini/pkg/logging"
)

// TipAmount is the fixed tip a buy/sell mint-or-burn transaction pays,
// matching the "fixed tip" wording of §4.10's buy_dinis.
const TipAmount = 0

// User is a node.Handler implementing the user role. ServeNodeRequest,
// ProcessNodeData, ServeBlockchainRequest never fire anything but their
// NopHandler no-op: §4.10 says users do not serve blockchain or
// transaction requests, and peer discovery is the bootstrap role's job.
type User struct {
	node.NopHandler

	n       *node.Node
	store   *storage.Storage
	bundle  *keys.WellKnownBundle
	selfKey *keys.KeyPair
	wallet  *wallet.Wallet
	log     *logging.Logger
}

// New constructs a user role around a fresh or restored wallet.
func New(store *storage.Storage, bundle *keys.WellKnownBundle, selfKey *keys.KeyPair, log *logging.Logger) (*User, error) {
	w := wallet.New(selfKey.Public, bundle)

	records, err := store.RecentWalletActions(-1)
	if err != nil {
		return nil, fmt.Errorf("user: load wallet actions: %w", err)
	}
	for _, r := range records {
		w.PutAction(&wallet.Action{
			ID:        r.ID,
			Type:      wallet.ActionType(r.ActionType),
			Amount:    r.Amount,
			Status:    wallet.ActionStatus(r.Status),
			Timestamp: r.Timestamp,
			Details:   r.Details,
		})
	}

	return &User{
		store:   store,
		bundle:  bundle,
		selfKey: selfKey,
		wallet:  w,
		log:     log.Component("user"),
	}, nil
}

// Attach gives the role a handle to its transport (§9 composition note).
func (u *User) Attach(n *node.Node) {
	u.n = n
}

// Wallet exposes the underlying wallet, e.g. for status reporting.
func (u *User) Wallet() *wallet.Wallet {
	return u.wallet
}

// Start issues the startup catch-up request against every known peer,
// carrying the wallet's current tip so a miner can reply with whatever
// it's missing (§4.10).
func (u *User) Start() error {
	for _, addr := range u.n.KnownAddresses() {
		if err := u.n.RequestBlockchain(addr, u.wallet.LatestHash()); err != nil {
			u.log.Warn("failed to request catch-up blockchain", "peer", addr.String(), "error", err)
		}
	}
	return nil
}

// Shutdown is a no-op: a user role holds no resources beyond what Node
// already tears down.
func (u *User) Shutdown() error {
	return nil
}

// BuyDinis mints amount dinis to the user from the well-known lord key
// (§4.10's deliberate central-bank simplification: anyone holding the
// shared lord secret may mint).
func (u *User) BuyDinis(amount uint64) error {
	tx := chain.NewTransaction(u.bundle.Lord.Public, u.selfKey.Public, amount, TipAmount)
	if err := tx.Sign(u.bundle.Lord.Private); err != nil {
		return fmt.Errorf("user: sign buy transaction: %w", err)
	}
	return u.registerAndBroadcast(tx, wallet.ActionBuy, amount, "buy")
}

// SellDinis burns amount dinis from the user back to the lord key.
func (u *User) SellDinis(amount uint64) error {
	tx := chain.NewTransaction(u.selfKey.Public, u.bundle.Lord.Public, amount, TipAmount)
	if err := tx.Sign(u.selfKey.Private); err != nil {
		return fmt.Errorf("user: sign sell transaction: %w", err)
	}
	return u.registerAndBroadcast(tx, wallet.ActionSell, amount, "sell")
}

// AddTransaction sends amount dinis (with tip) to the peer known by name,
// resolved via the transport's name-handshake table (§4.10).
func (u *User) AddTransaction(name string, amount, tip uint64) error {
	recipient, ok := u.n.ResolvePublicKeyByName(name)
	if !ok {
		return fmt.Errorf("user: unknown recipient name %q", name)
	}

	tx := chain.NewTransaction(u.selfKey.Public, recipient, amount, tip)
	if err := tx.Sign(u.selfKey.Private); err != nil {
		return fmt.Errorf("user: sign transfer transaction: %w", err)
	}
	return u.registerAndBroadcast(tx, wallet.ActionTransfer, amount, "transfer to "+name)
}

func (u *User) registerAndBroadcast(tx *chain.Transaction, actionType wallet.ActionType, amount uint64, details string) error {
	id := tx.ID()
	u.wallet.RegisterPending(id, actionType, amount, details)
	if err := u.persistAction(id, actionType, amount, wallet.ActionPending, details); err != nil {
		u.log.Warn("failed to persist pending action", "error", err)
	}

	if err := u.n.DistributeTransaction(tx); err != nil {
		return fmt.Errorf("user: broadcast transaction: %w", err)
	}
	return nil
}

func (u *User) persistAction(id string, actionType wallet.ActionType, amount uint64, status wallet.ActionStatus, details string) error {
	return u.store.SaveWalletAction(&storage.WalletActionRecord{
		ID:         id,
		ActionType: string(actionType),
		Amount:     amount,
		Status:     string(status),
		Timestamp:  time.Now().Unix(),
		Details:    details,
	})
}

// ProcessBlockchainData defers to the wallet, applying every block in
// order and persisting each applied Action (§4.11).
func (u *User) ProcessBlockchainData(bc *chain.Blockchain) {
	for _, b := range bc.Blocks() {
		if b.Hash == chain.GenesisBlock().Hash {
			continue
		}
		u.applyBlock(b)
	}
}

// ProcessBlockData defers to the wallet (§4.10, §4.11). isNew mirrors the
// wallet's "new" vs "rejected" verdict so gossip re-forwards only blocks
// the wallet actually advanced on.
func (u *User) ProcessBlockData(b *chain.Block) bool {
	return u.applyBlock(b)
}

func (u *User) applyBlock(b *chain.Block) bool {
	verdict := u.wallet.FilterAndAddBlock(b)
	if verdict != "new" {
		return false
	}
	for _, tx := range b.Transactions {
		if a := u.wallet.Action(tx.ID()); a != nil {
			if err := u.persistAction(a.ID, a.Type, a.Amount, a.Status, a.Details); err != nil {
				u.log.Warn("failed to persist applied action", "error", err)
			}
		}
	}
	return true
}
