package storage

import (
	"database/sql"
	"time"
)

// BlockRecord is the persisted form of a chain block.
type BlockRecord struct {
	BlockHash       string
	PreviousHash    string
	Height          uint64
	Difficulty      int
	Nonce           uint64
	Timestamp       int64
	TransactionsGob []byte
}

// SaveBlock appends a block to the persisted chain.
func (s *Storage) SaveBlock(b *BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO blocks
			(block_hash, previous_hash, height, difficulty, nonce, timestamp, transactions, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BlockHash, b.PreviousHash, b.Height, b.Difficulty, b.Nonce, b.Timestamp,
		b.TransactionsGob, time.Now().Unix(),
	)
	return err
}

// LoadChain returns every persisted block ordered by height ascending.
func (s *Storage) LoadChain() ([]*BlockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT block_hash, previous_hash, height, difficulty, nonce, timestamp, transactions
		 FROM blocks ORDER BY height ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*BlockRecord
	for rows.Next() {
		b := &BlockRecord{}
		if err := rows.Scan(&b.BlockHash, &b.PreviousHash, &b.Height, &b.Difficulty, &b.Nonce, &b.Timestamp, &b.TransactionsGob); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// ChainHeight returns the height of the latest persisted block, or -1 if empty.
func (s *Storage) ChainHeight() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var height sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(height) FROM blocks`).Scan(&height)
	if err != nil {
		return -1, err
	}
	if !height.Valid {
		return -1, nil
	}
	return height.Int64, nil
}
