package storage

import "time"

// MempoolRecord is the persisted form of a pending transaction.
type MempoolRecord struct {
	SignaturePrefix string
	Payload         []byte
	Tip             uint64
}

// SaveMempoolTransaction upserts a pending transaction.
func (s *Storage) SaveMempoolTransaction(r *MempoolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO mempool_transactions (signature_prefix, payload, tip, received_at)
		 VALUES (?, ?, ?, ?)`,
		r.SignaturePrefix, r.Payload, r.Tip, time.Now().Unix(),
	)
	return err
}

// DeleteMempoolTransaction removes a transaction once it lands in a block.
func (s *Storage) DeleteMempoolTransaction(signaturePrefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM mempool_transactions WHERE signature_prefix = ?`, signaturePrefix)
	return err
}

// LoadMempool returns every persisted pending transaction, tip-descending.
func (s *Storage) LoadMempool() ([]*MempoolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT signature_prefix, payload, tip FROM mempool_transactions ORDER BY tip DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*MempoolRecord
	for rows.Next() {
		r := &MempoolRecord{}
		if err := rows.Scan(&r.SignaturePrefix, &r.Payload, &r.Tip); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
