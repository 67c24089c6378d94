package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/snoopy/proofwatch/internal/chain"
	"github.com/snoopy/proofwatch/internal/model"
)

type fakeBackend struct {
	latest   uint64
	logs     []chain.Log
	logsErr  error
	txs      map[string]*chain.Transaction
	receipts map[string]*chain.Receipt
	tsByNum  map[uint64]uint64
	tsErr    map[uint64]error

	receiptCalls int
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeBackend) GetLogs(context.Context, chain.LogQuery) ([]chain.Log, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.logs, nil
}

func (f *fakeBackend) TransactionByHash(_ context.Context, hash string) (*chain.Transaction, error) {
	return f.txs[hash], nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash string) (*chain.Receipt, error) {
	f.receiptCalls++
	return f.receipts[hash], nil
}

func (f *fakeBackend) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	if err := f.tsErr[number]; err != nil {
		return 0, err
	}
	return f.tsByNum[number], nil
}

func blockRef(n uint64) *hexutil.Uint64 {
	v := hexutil.Uint64(n)
	return &v
}

func TestRecordOptimisticDeduplicates(t *testing.T) {
	ledger := New(&fakeBackend{}, nil)
	ledger.RecordOptimistic("0xABCD", "0xFrom", "0xTo")
	ledger.RecordOptimistic("0xabcd", "0xother", "0xother")

	if ledger.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", ledger.Len())
	}
	entry, ok := ledger.Get("0xAbCd")
	if !ok {
		t.Fatalf("entry not found under case variant")
	}
	if entry.Status != model.StatusPending || entry.BlockNumber != nil {
		t.Fatalf("optimistic entry malformed: %+v", entry)
	}
	if entry.From != "0xfrom" {
		t.Fatalf("first write should win: %s", entry.From)
	}
}

func TestPollConfirmationConfirms(t *testing.T) {
	backend := &fakeBackend{receipts: map[string]*chain.Receipt{
		"0xaa": {TxHash: "0xaa", Status: 1, BlockNumber: blockRef(42)},
	}}
	ledger := New(backend, nil)
	ledger.RecordOptimistic("0xaa", "0xf", "0xt")

	status, err := ledger.PollConfirmation(context.Background(), "0xaa", time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != model.StatusConfirmed {
		t.Fatalf("status %s", status)
	}

	entry, _ := ledger.Get("0xaa")
	if entry.Status != model.StatusConfirmed {
		t.Fatalf("entry not confirmed: %+v", entry)
	}
	if entry.BlockNumber == nil || *entry.BlockNumber != 42 {
		t.Fatalf("block number not populated: %+v", entry)
	}
}

func TestPollConfirmationFailedReceipt(t *testing.T) {
	backend := &fakeBackend{receipts: map[string]*chain.Receipt{
		"0xbb": {TxHash: "0xbb", Status: 0, BlockNumber: blockRef(10)},
	}}
	ledger := New(backend, nil)
	ledger.RecordOptimistic("0xbb", "0xf", "0xt")

	status, err := ledger.PollConfirmation(context.Background(), "0xbb", time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != model.StatusFailed {
		t.Fatalf("status %s", status)
	}
}

func TestPollConfirmationTimeoutLeavesPending(t *testing.T) {
	backend := &fakeBackend{receipts: map[string]*chain.Receipt{}}
	ledger := New(backend, nil)
	ledger.RecordOptimistic("0xcc", "0xf", "0xt")

	status, err := ledger.PollConfirmation(context.Background(), "0xcc", time.Millisecond, 15*time.Millisecond)
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if status != model.StatusPending {
		t.Fatalf("status %s", status)
	}

	entry, _ := ledger.Get("0xcc")
	if entry.Status != model.StatusPending {
		t.Fatalf("entry should stay pending: %+v", entry)
	}

	calls := backend.receiptCalls
	time.Sleep(10 * time.Millisecond)
	if backend.receiptCalls != calls {
		t.Fatalf("polling did not stop after timeout")
	}
}

func TestReconcileFromChainMergesAndFilters(t *testing.T) {
	backend := &fakeBackend{
		latest: 1000,
		logs: []chain.Log{
			{TxHash: "0xMine", BlockNumber: 900},
			{TxHash: "0xMine", BlockNumber: 900, LogIndex: 1},
			{TxHash: "0xtheirs", BlockNumber: 950},
			{TxHash: "0xlost", BlockNumber: 970},
		},
		txs: map[string]*chain.Transaction{
			"0xMine":   {Hash: "0xMine", From: "0xABCDEF0000000000000000000000000000000001", To: "0xmanager", BlockNumber: blockRef(900)},
			"0xtheirs": {Hash: "0xtheirs", From: "0x9999990000000000000000000000000000000009", To: "0xmanager", BlockNumber: blockRef(950)},
		},
	}
	ledger := New(backend, nil)

	// Account differs from tx.From only by case.
	err := ledger.ReconcileFromChain(context.Background(), "0xmanager", "0xabcdef0000000000000000000000000000000001", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ledger.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", ledger.Len())
	}
	entry, ok := ledger.Get("0xmine")
	if !ok {
		t.Fatalf("discovered entry missing")
	}
	if entry.Status != model.StatusConfirmed {
		t.Fatalf("discovered entry should be confirmed: %+v", entry)
	}
	if entry.BlockNumber == nil || *entry.BlockNumber != 900 {
		t.Fatalf("block not set: %+v", entry)
	}
}

func TestReconcileMergesIntoOptimisticEntry(t *testing.T) {
	backend := &fakeBackend{
		latest: 100,
		logs:   []chain.Log{{TxHash: "0xdd", BlockNumber: 90}},
		txs: map[string]*chain.Transaction{
			"0xdd": {Hash: "0xdd", From: "0xme", To: "0xmanager", BlockNumber: blockRef(90)},
		},
	}
	ledger := New(backend, nil)
	ledger.RecordOptimistic("0xdd", "0xme", "0xmanager")

	if err := ledger.ReconcileFromChain(context.Background(), "0xmanager", "0xME", 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ledger.Len() != 1 {
		t.Fatalf("duplicate entry created: %d", ledger.Len())
	}
	entry, _ := ledger.Get("0xdd")
	if entry.Status != model.StatusConfirmed {
		t.Fatalf("pending entry not promoted: %+v", entry)
	}
	if entry.BlockNumber == nil || *entry.BlockNumber != 90 {
		t.Fatalf("block not backfilled: %+v", entry)
	}
}

func TestReconcileNeverDowngradesStatusOrBlock(t *testing.T) {
	backend := &fakeBackend{
		latest: 100,
		logs:   []chain.Log{{TxHash: "0xee", BlockNumber: 80}},
		txs: map[string]*chain.Transaction{
			"0xee": {Hash: "0xee", From: "0xme", To: "0xmanager", BlockNumber: blockRef(80)},
		},
		receipts: map[string]*chain.Receipt{
			"0xee": {TxHash: "0xee", Status: 0, BlockNumber: blockRef(77)},
		},
	}
	ledger := New(backend, nil)
	ledger.RecordOptimistic("0xee", "0xme", "0xmanager")

	// Receipt resolves first: failed at block 77.
	if _, err := ledger.PollConfirmation(context.Background(), "0xee", time.Millisecond, time.Second); err != nil {
		t.Fatalf("poll: %v", err)
	}
	// A later reconciliation pass must not flip failed back.
	if err := ledger.ReconcileFromChain(context.Background(), "0xmanager", "0xme", 50); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	entry, _ := ledger.Get("0xee")
	if entry.Status != model.StatusFailed {
		t.Fatalf("failed status regressed: %+v", entry)
	}
	if entry.BlockNumber == nil || *entry.BlockNumber != 77 {
		t.Fatalf("known block overwritten: %+v", entry)
	}
}

func TestReconcileAbortsOnScanError(t *testing.T) {
	rpcErr := &model.RPCError{Kind: model.RPCTransport, Method: "eth_getLogs", Err: errors.New("dial tcp: refused")}
	ledger := New(&fakeBackend{latest: 10, logsErr: rpcErr}, nil)

	err := ledger.ReconcileFromChain(context.Background(), "0xmanager", "0xme", 5)
	var got *model.RPCError
	if !errors.As(err, &got) {
		t.Fatalf("expected rpc error, got %v", err)
	}
	if ledger.Len() != 0 {
		t.Fatalf("partial merge happened")
	}
}

func TestFetchMissingTimestampsToleratesFailures(t *testing.T) {
	backend := &fakeBackend{
		latest: 100,
		logs: []chain.Log{
			{TxHash: "0x01", BlockNumber: 10},
			{TxHash: "0x02", BlockNumber: 20},
		},
		txs: map[string]*chain.Transaction{
			"0x01": {Hash: "0x01", From: "0xme", BlockNumber: blockRef(10)},
			"0x02": {Hash: "0x02", From: "0xme", BlockNumber: blockRef(20)},
		},
		tsByNum: map[uint64]uint64{20: 1_700_000_000},
		tsErr:   map[uint64]error{10: errors.New("header unavailable")},
	}
	ledger := New(backend, nil)
	if err := ledger.ReconcileFromChain(context.Background(), "0xmanager", "0xme", 99); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	ledger.FetchMissingTimestamps(context.Background())

	withTs, _ := ledger.Get("0x02")
	if withTs.Timestamp == nil || *withTs.Timestamp != 1_700_000_000 {
		t.Fatalf("timestamp not backfilled: %+v", withTs)
	}
	without, _ := ledger.Get("0x01")
	if without.Timestamp != nil {
		t.Fatalf("failed lookup should leave timestamp empty")
	}
}

func TestEntriesOrdering(t *testing.T) {
	ledger := New(&fakeBackend{}, nil)
	ledger.RecordOptimistic("0xpending", "0xme", "0xmanager")
	ledger.mergeDiscovered("0xold", "0xme", "0xmanager", 5)
	ledger.mergeDiscovered("0xnew", "0xme", "0xmanager", 50)

	entries := ledger.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Hash != "0xnew" || entries[1].Hash != "0xold" {
		t.Fatalf("wrong block ordering: %s, %s", entries[0].Hash, entries[1].Hash)
	}
	if entries[2].Hash != "0xpending" {
		t.Fatalf("pending entry should sort last: %s", entries[2].Hash)
	}
}

func TestClear(t *testing.T) {
	ledger := New(&fakeBackend{}, nil)
	ledger.RecordOptimistic("0x01", "0xme", "0xmanager")
	ledger.Clear()
	if ledger.Len() != 0 {
		t.Fatalf("ledger not empty after clear")
	}
}
