package storage

import "testing"

func TestWalletActionRoundtrip(t *testing.T) {
	store := newTestStorage(t)

	action := &WalletActionRecord{
		ID:           "act-1",
		ActionType:   "transfer",
		Amount:       100,
		Status:       "pending",
		Counterparty: "someone",
		Timestamp:    1000,
		Details:      "",
	}
	if err := store.SaveWalletAction(action); err != nil {
		t.Fatalf("SaveWalletAction() error = %v", err)
	}

	action.Status = "approved"
	action.Details = "confirmed in block 3"
	if err := store.SaveWalletAction(action); err != nil {
		t.Fatalf("SaveWalletAction() update error = %v", err)
	}

	recent, err := store.RecentWalletActions(10)
	if err != nil {
		t.Fatalf("RecentWalletActions() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("len(recent) = %d, want 1", len(recent))
	}
	if recent[0].Status != "approved" {
		t.Errorf("Status = %s, want approved", recent[0].Status)
	}
}

func TestRecentWalletActionsOrdering(t *testing.T) {
	store := newTestStorage(t)

	for i, ts := range []int64{300, 100, 200} {
		a := &WalletActionRecord{
			ID:         string(rune('a' + i)),
			ActionType: "transfer",
			Amount:     1,
			Status:     "approved",
			Timestamp:  ts,
		}
		if err := store.SaveWalletAction(a); err != nil {
			t.Fatalf("SaveWalletAction() error = %v", err)
		}
	}

	recent, err := store.RecentWalletActions(2)
	if err != nil {
		t.Fatalf("RecentWalletActions() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Timestamp != 300 || recent[1].Timestamp != 200 {
		t.Errorf("unexpected order: %+v", recent)
	}
}
