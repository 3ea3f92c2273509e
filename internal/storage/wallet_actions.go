package storage

// WalletActionRecord is the persisted form of a wallet Action.
type WalletActionRecord struct {
	ID           string
	ActionType   string
	Amount       uint64
	Status       string
	Counterparty string
	Timestamp    int64
	Details      string
}

// SaveWalletAction upserts an action record.
func (s *Storage) SaveWalletAction(a *WalletActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO wallet_actions (id, action_type, amount, status, counterparty, timestamp, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, details = excluded.details`,
		a.ID, a.ActionType, a.Amount, a.Status, a.Counterparty, a.Timestamp, a.Details,
	)
	return err
}

// RecentWalletActions returns the n most recently timestamped actions.
func (s *Storage) RecentWalletActions(n int) ([]*WalletActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, action_type, amount, status, counterparty, timestamp, details
		 FROM wallet_actions ORDER BY timestamp DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*WalletActionRecord
	for rows.Next() {
		a := &WalletActionRecord{}
		if err := rows.Scan(&a.ID, &a.ActionType, &a.Amount, &a.Status, &a.Counterparty, &a.Timestamp, &a.Details); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
