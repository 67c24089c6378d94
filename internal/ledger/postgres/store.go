// Package postgres persists ledger entries for the dashboard. The upsert
// mirrors the in-memory merge rules: one row per transaction hash, no status
// regression to pending, no overwrite of a known block number.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snoopy/proofwatch/internal/model"
)

// Store provides Postgres persistence for ledger entries.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects a pool for the given DSN.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertEntries writes a batch of ledger entries.
func (s *Store) UpsertEntries(ctx context.Context, account string, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(`
			INSERT INTO ledger_entries (
				account, tx_hash, from_address, to_address, block_number, block_timestamp, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (account, tx_hash)
			DO UPDATE SET
				block_number = COALESCE(ledger_entries.block_number, EXCLUDED.block_number),
				block_timestamp = COALESCE(ledger_entries.block_timestamp, EXCLUDED.block_timestamp),
				status = CASE
					WHEN ledger_entries.status IN ('confirmed', 'failed') AND EXCLUDED.status = 'pending'
						THEN ledger_entries.status
					ELSE EXCLUDED.status
				END,
				updated_at = now()
		`,
			account,
			entry.Hash,
			entry.From,
			entry.To,
			int64Ref(entry.BlockNumber),
			int64Ref(entry.Timestamp),
			string(entry.Status),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListEntries loads an account's entries, newest block first, pending last.
func (s *Store) ListEntries(ctx context.Context, account string) ([]model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, from_address, to_address, block_number, block_timestamp, status
		FROM ledger_entries
		WHERE account = $1
		ORDER BY block_number DESC NULLS LAST, tx_hash ASC
	`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		var block, ts *int64
		var status string
		if err := rows.Scan(&entry.Hash, &entry.From, &entry.To, &block, &ts, &status); err != nil {
			return nil, err
		}
		entry.BlockNumber = uint64Ref(block)
		entry.Timestamp = uint64Ref(ts)
		entry.Status = model.EntryStatus(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func int64Ref(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	out := int64(*v)
	return &out
}

func uint64Ref(v *int64) *uint64 {
	if v == nil {
		return nil
	}
	out := uint64(*v)
	return &out
}
