// Package ledger maintains the local view of a wallet's submissions to the
// managed contract. Entries arrive from two independent directions: an
// optimistic write right after a wallet send, and historical discovery
// through log scans. The merge rules keep the result order-independent: at
// most one entry per hash, a confirmed or failed status never regresses to
// pending, and a known block number is never overwritten.
package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/chain"
	"github.com/snoopy/proofwatch/internal/model"
	"github.com/snoopy/proofwatch/internal/poll"
)

const (
	// DefaultPollInterval and DefaultPollTimeout bound confirmation polling.
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// ChainBackend is the slice of the chain client the ledger consumes.
type ChainBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, query chain.LogQuery) ([]chain.Log, error)
	TransactionByHash(ctx context.Context, hash string) (*chain.Transaction, error)
	TransactionReceipt(ctx context.Context, hash string) (*chain.Receipt, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Ledger is the deduplicated set of submissions, keyed by transaction hash.
type Ledger struct {
	chain  ChainBackend
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*model.LedgerEntry
}

// New builds an empty ledger over a chain backend.
func New(chainClient ChainBackend, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		chain:   chainClient,
		logger:  logger,
		entries: make(map[string]*model.LedgerEntry),
	}
}

// RecordOptimistic inserts a pending entry right after a wallet send. A hash
// that is already present is left untouched.
func (l *Ledger) RecordOptimistic(hash, from, to string) {
	key := strings.ToLower(hash)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[key]; ok {
		return
	}
	l.entries[key] = &model.LedgerEntry{
		Hash:   key,
		From:   strings.ToLower(from),
		To:     strings.ToLower(to),
		Status: model.StatusPending,
	}
}

// Get returns a copy of the entry for hash.
func (l *Ledger) Get(hash string) (model.LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[strings.ToLower(hash)]
	if !ok {
		return model.LedgerEntry{}, false
	}
	return *entry, true
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns all entries sorted by block number descending; entries
// without a block (still pending) sort last. Ties order by hash so the
// result is deterministic.
func (l *Ledger) Entries() []model.LedgerEntry {
	l.mu.Lock()
	out := make([]model.LedgerEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, *entry)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].BlockNumber, out[j].BlockNumber
		switch {
		case a == nil && b == nil:
			return out[i].Hash < out[j].Hash
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return out[i].Hash < out[j].Hash
		}
	})
	return out
}

// Clear empties the ledger. Used on explicit user action or wallet
// disconnect only.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.entries = make(map[string]*model.LedgerEntry)
	l.mu.Unlock()
}

// PollConfirmation polls the transaction receipt until it arrives or the
// timeout elapses. A receipt transitions the entry to confirmed or failed
// depending on its status bit; a timeout leaves the entry pending and simply
// stops, which is not an error. RPC failures during a poll are retried on the
// next tick.
func (l *Ledger) PollConfirmation(ctx context.Context, hash string, interval, timeout time.Duration) (model.EntryStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	final := model.StatusPending
	_, err := poll.Until(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		receipt, err := l.chain.TransactionReceipt(ctx, hash)
		if err != nil {
			l.logger.Warn("receipt poll failed", zap.String("hash", hash), zap.Error(err))
			return false, nil
		}
		if receipt == nil {
			return false, nil
		}
		final = l.applyReceipt(hash, receipt)
		return true, nil
	})
	if err != nil {
		return model.StatusPending, err
	}
	return final, nil
}

func (l *Ledger) applyReceipt(hash string, receipt *chain.Receipt) model.EntryStatus {
	status := model.StatusFailed
	if receipt.Status == 1 {
		status = model.StatusConfirmed
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[strings.ToLower(hash)]
	if !ok {
		// Cleared while polling; the resolution is simply dropped.
		return status
	}
	entry.Status = status
	if entry.BlockNumber == nil && receipt.BlockNumber != nil {
		block := uint64(*receipt.BlockNumber)
		entry.BlockNumber = &block
	}
	return status
}

// ReconcileFromChain scans the last lookbackBlocks blocks of logs at the
// contract, resolves each log's parent transaction, and merges those sent by
// account into the ledger. Individually unresolvable transactions are
// skipped; a failing scan aborts.
func (l *Ledger) ReconcileFromChain(ctx context.Context, contract, account string, lookbackBlocks uint64) error {
	if lookbackBlocks == 0 {
		return nil
	}
	latest, err := l.chain.BlockNumber(ctx)
	if err != nil {
		return err
	}
	from := uint64(0)
	if lookbackBlocks <= latest {
		from = latest - lookbackBlocks + 1
	}

	logs, err := l.chain.GetLogs(ctx, chain.LogQuery{
		Address:   contract,
		FromBlock: hexutil.EncodeUint64(from),
		ToBlock:   hexutil.EncodeUint64(latest),
	})
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(logs))
	for _, log := range logs {
		key := strings.ToLower(log.TxHash)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		tx, err := l.chain.TransactionByHash(ctx, log.TxHash)
		if err != nil || tx == nil {
			l.logger.Warn("could not resolve transaction for log",
				zap.String("tx_hash", log.TxHash),
				zap.Error(err),
			)
			continue
		}
		if !strings.EqualFold(tx.From, account) {
			continue
		}

		block := uint64(log.BlockNumber)
		if block == 0 && tx.BlockNumber != nil {
			block = uint64(*tx.BlockNumber)
		}
		l.mergeDiscovered(key, tx.From, tx.To, block)
	}
	return nil
}

// mergeDiscovered folds one chain-discovered transaction into the ledger.
// Discovered data wins for missing fields, but never regresses a terminal
// status or overwrites a known block number.
func (l *Ledger) mergeDiscovered(hash, from, to string, blockNumber uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[hash]
	if !ok {
		l.entries[hash] = &model.LedgerEntry{
			Hash:        hash,
			From:        strings.ToLower(from),
			To:          strings.ToLower(to),
			BlockNumber: &blockNumber,
			Status:      model.StatusConfirmed,
		}
		return
	}

	if entry.BlockNumber == nil {
		entry.BlockNumber = &blockNumber
	}
	if entry.Status == model.StatusPending {
		entry.Status = model.StatusConfirmed
	}
	if entry.From == "" {
		entry.From = strings.ToLower(from)
	}
	if entry.To == "" {
		entry.To = strings.ToLower(to)
	}
}

// FetchMissingTimestamps backfills timestamps for entries that have a block
// number but no timestamp yet. Individual lookup failures skip the entry and
// never abort the batch.
func (l *Ledger) FetchMissingTimestamps(ctx context.Context) {
	type missing struct {
		hash  string
		block uint64
	}

	l.mu.Lock()
	var todo []missing
	for hash, entry := range l.entries {
		if entry.BlockNumber != nil && entry.Timestamp == nil {
			todo = append(todo, missing{hash: hash, block: *entry.BlockNumber})
		}
	}
	l.mu.Unlock()

	for _, m := range todo {
		ts, err := l.chain.BlockTimestamp(ctx, m.block)
		if err != nil {
			l.logger.Warn("timestamp backfill failed",
				zap.String("hash", m.hash),
				zap.Uint64("block", m.block),
				zap.Error(err),
			)
			continue
		}

		l.mu.Lock()
		if entry, ok := l.entries[m.hash]; ok && entry.Timestamp == nil {
			entry.Timestamp = &ts
		}
		l.mu.Unlock()
	}
}
