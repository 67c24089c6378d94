package model

// EntryStatus is the lifecycle state of a submitted transaction.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusConfirmed EntryStatus = "confirmed"
	StatusFailed    EntryStatus = "failed"
)

// LedgerEntry is one transaction in the local ledger, keyed by hash. An entry
// is created either optimistically right after a wallet send (pending, no
// block) or discovered through a historical scan (confirmed, block set).
type LedgerEntry struct {
	Hash        string      `json:"hash"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	BlockNumber *uint64     `json:"block_number,omitempty"`
	Timestamp   *uint64     `json:"timestamp,omitempty"`
	Status      EntryStatus `json:"status"`
}
