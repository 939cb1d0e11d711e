package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Pair is an unordered pair of file ids, canonicalized so A < B.
type Pair struct {
	A, B int64
}

// NewPair canonicalizes a pair of file ids. A pair of a file with itself
// is invalid.
func NewPair(a, b int64) (Pair, error) {
	if a == b {
		return Pair{}, fmt.Errorf("whitelist pair cannot reference file %d twice", a)
	}
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}, nil
}

// WhitelistAdd records every pair of the given file ids as legitimately
// similar. Fewer than two ids is rejected; already-present pairs are kept.
func (s *Store) WhitelistAdd(ctx context.Context, ids []int64) error {
	if len(ids) < 2 {
		return fmt.Errorf("whitelist needs at least two files, got %d", len(ids))
	}

	var pairs []Pair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			p, err := NewPair(ids[i], ids[j])
			if err != nil {
				return err
			}
			pairs = append(pairs, p)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO whitelist (id1, id2) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, p.A, p.B); err != nil {
			return fmt.Errorf("insert whitelist pair (%d, %d): %w", p.A, p.B, err)
		}
	}

	return tx.Commit()
}

// WhitelistContains reports whether the pair has been whitelisted.
func (s *Store) WhitelistContains(ctx context.Context, p Pair) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM whitelist WHERE id1 = ? AND id2 = ?", p.A, p.B).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
