package storage

import (
	"os"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "dini-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := New(&Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadChain(t *testing.T) {
	store := newTestStorage(t)

	blocks := []*BlockRecord{
		{BlockHash: "h0", PreviousHash: "", Height: 0, Difficulty: 3, Nonce: 0, Timestamp: 0, TransactionsGob: []byte("genesis")},
		{BlockHash: "h1", PreviousHash: "h0", Height: 1, Difficulty: 3, Nonce: 42, Timestamp: 100, TransactionsGob: []byte("block1")},
	}
	for _, b := range blocks {
		if err := store.SaveBlock(b); err != nil {
			t.Fatalf("SaveBlock() error = %v", err)
		}
	}

	loaded, err := store.LoadChain()
	if err != nil {
		t.Fatalf("LoadChain() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len(loaded) = %d, want 2", len(loaded))
	}
	if loaded[0].Height != 0 || loaded[1].Height != 1 {
		t.Errorf("chain not ordered by height: %+v", loaded)
	}

	height, err := store.ChainHeight()
	if err != nil {
		t.Fatalf("ChainHeight() error = %v", err)
	}
	if height != 1 {
		t.Errorf("ChainHeight() = %d, want 1", height)
	}
}

func TestChainHeightEmpty(t *testing.T) {
	store := newTestStorage(t)

	height, err := store.ChainHeight()
	if err != nil {
		t.Fatalf("ChainHeight() error = %v", err)
	}
	if height != -1 {
		t.Errorf("ChainHeight() on empty store = %d, want -1", height)
	}
}
