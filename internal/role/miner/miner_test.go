package miner

import (
	"os"
	"testing"
	"time"

	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/keys"
	"github.com/paper-piper/Dini/internal/storage"
	"github.com/paper-piper/Dini/pkg/logging"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	dir, err := os.MkdirTemp("", "dini-miner-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := storage.New(&storage.Config{DataDir: dir})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testBundle(t *testing.T) *keys.WellKnownBundle {
	t.Helper()
	path := os.TempDir() + "/dini-miner-test-bundle.pem"
	os.Remove(path)
	bundle, err := keys.LoadOrCreateBundle(path)
	if err != nil {
		t.Fatalf("LoadOrCreateBundle() error = %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })
	return bundle
}

func newTestMiner(t *testing.T) *Miner {
	t.Helper()
	store := newTestStorage(t)
	bundle := testBundle(t)

	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("keys.Generate() error = %v", err)
	}

	m, err := New(store, bundle, kp, Config{Difficulty: 1, Workers: 2, BlockBudget: 1, MempoolSelect: 16}, logging.GetDefault())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestNewMinerStartsAtGenesis(t *testing.T) {
	m := newTestMiner(t)
	if m.Blockchain().Len() != 1 {
		t.Fatalf("expected fresh miner to start at genesis only, got len %d", m.Blockchain().Len())
	}
}

func TestBuildCandidateIncludesTippingAndBonus(t *testing.T) {
	m := newTestMiner(t)

	sender, err := keys.Generate()
	if err != nil {
		t.Fatalf("keys.Generate() error = %v", err)
	}
	recipient, err := keys.Generate()
	if err != nil {
		t.Fatalf("keys.Generate() error = %v", err)
	}
	tx := chain.NewTransaction(sender.Public, recipient.Public, 10, 1)
	if err := tx.Sign(sender.Private); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	m.mp.Insert(tx)

	candidate, err := m.buildCandidate()
	if err != nil {
		t.Fatalf("buildCandidate() error = %v", err)
	}
	if len(candidate.Transactions) != 3 {
		t.Fatalf("expected 3 transactions (tipping, ordinary, bonus), got %d", len(candidate.Transactions))
	}
	if candidate.Transactions[0].Amount != 1 {
		t.Errorf("tipping transaction amount = %d, want 1 (sum of tips)", candidate.Transactions[0].Amount)
	}
	if candidate.Transactions[len(candidate.Transactions)-1].Amount != chain.BonusAmount {
		t.Errorf("bonus transaction amount = %d, want %d", candidate.Transactions[len(candidate.Transactions)-1].Amount, chain.BonusAmount)
	}
	if !candidate.ValidateBlock(m.bundle) {
		t.Errorf("candidate should validate before mining (PoW aside)")
	}
}

func TestProcessTransactionDataRejectsInvalidAndDuplicate(t *testing.T) {
	m := newTestMiner(t)

	sender, _ := keys.Generate()
	recipient, _ := keys.Generate()
	tx := chain.NewTransaction(sender.Public, recipient.Public, 0, 0) // invalid: zero amount
	if err := tx.Sign(sender.Private); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if m.ProcessTransactionData(tx) {
		t.Errorf("expected zero-amount transaction to be rejected")
	}
	if m.mp.Len() != 0 {
		t.Errorf("mempool should be empty after rejecting invalid transaction")
	}

	valid := chain.NewTransaction(sender.Public, recipient.Public, 10, 1)
	if err := valid.Sign(sender.Private); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !m.ProcessTransactionData(valid) {
		t.Fatalf("expected valid transaction to be admitted")
	}
	if m.ProcessTransactionData(valid) {
		t.Errorf("expected duplicate transaction to report already-seen")
	}
	if m.mp.Len() != 1 {
		t.Errorf("mempool len = %d, want 1", m.mp.Len())
	}
}

func TestProcessBlockDataRejectsBadLinkage(t *testing.T) {
	m := newTestMiner(t)

	kp, _ := keys.Generate()
	bad := chain.NewBlock("not-the-tip", nil, 0, time.Now().Unix())
	if err := bad.AddTippingTransaction(m.bundle, kp.Public); err != nil {
		t.Fatalf("AddTippingTransaction() error = %v", err)
	}
	if err := bad.AddBonusTransaction(m.bundle, kp.Public); err != nil {
		t.Fatalf("AddBonusTransaction() error = %v", err)
	}
	bad.Hash = bad.CalculateHash()

	if m.ProcessBlockData(bad) {
		t.Errorf("expected badly linked block to be rejected")
	}
	if m.Blockchain().Len() != 1 {
		t.Errorf("chain should be unchanged after rejecting bad block")
	}
}
