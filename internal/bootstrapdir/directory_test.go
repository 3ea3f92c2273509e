package bootstrapdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paper-piper/Dini/internal/node"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	addrs := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if len(addrs) != 0 {
		t.Errorf("Load() of missing file = %v, want empty", addrs)
	}
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	addrs := Load(path)
	if len(addrs) != 0 {
		t.Errorf("Load() of corrupt file = %v, want empty", addrs)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir.json")
	want := []node.Address{{IP: "127.0.0.1", Port: 8001}, {IP: "10.0.0.2", Port: 9000}}

	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := Load(path)
	if len(got) != len(want) {
		t.Fatalf("Load() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Load()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAddDedupAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir.json")
	addr := node.Address{IP: "127.0.0.1", Port: 8001}

	if err := Add(path, addr); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := Add(path, addr); err != nil {
		t.Fatalf("Add() (dup) error = %v", err)
	}
	if got := Load(path); len(got) != 1 {
		t.Fatalf("Load() after duplicate Add() = %v, want 1 entry", got)
	}

	if err := Remove(path, addr); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got := Load(path); len(got) != 0 {
		t.Fatalf("Load() after Remove() = %v, want empty", got)
	}
}
