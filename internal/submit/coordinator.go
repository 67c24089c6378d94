// Package submit orchestrates one end-to-end proof submission: metadata,
// wallet and network checks, artifact fetch, call encoding, send, and
// optimistic ledger tracking.
package submit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/codec"
	"github.com/snoopy/proofwatch/internal/model"
	"github.com/snoopy/proofwatch/internal/wallet"
)

// State names one step of a submission attempt.
type State string

const (
	StateIdle           State = "idle"
	StateNetworkChecked State = "network_checked"
	StateEncoded        State = "encoded"
	StateSent           State = "sent"
	StateConfirmed      State = "confirmed"
	StateFailed         State = "failed"
)

// TaskService is the slice of the task-service client the coordinator needs.
type TaskService interface {
	Metadata(ctx context.Context) (model.ChainMetadata, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
}

// Tracker is the slice of the ledger the coordinator hands entries to.
type Tracker interface {
	RecordOptimistic(hash, from, to string)
	PollConfirmation(ctx context.Context, hash string, interval, timeout time.Duration) (model.EntryStatus, error)
}

// Coordinator performs proof submissions for a wallet session.
type Coordinator struct {
	tasks   TaskService
	session *wallet.Session
	guard   *wallet.Guard
	tracker Tracker
	logger  *zap.Logger

	// PollInterval and PollTimeout configure confirmation tracking; zero
	// values use the ledger defaults.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// NewCoordinator wires a coordinator over a connected session.
func NewCoordinator(tasks TaskService, session *wallet.Session, tracker Tracker, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		tasks:   tasks,
		session: session,
		guard:   wallet.NewGuard(session.Provider(), logger),
		tracker: tracker,
		logger:  logger,
	}
}

// Submit runs the submission state machine for one task and returns the
// transaction hash. No ledger entry exists until the wallet has actually
// returned a hash; every earlier failure is terminal for this attempt only.
func (c *Coordinator) Submit(ctx context.Context, taskID string) (string, error) {
	state := StateIdle

	meta, err := c.tasks.Metadata(ctx)
	if err != nil {
		return "", c.fail(state, fmt.Errorf("load chain metadata: %w", err))
	}

	account := c.session.Account()
	if account == "" {
		return "", c.fail(state, model.ErrNotConnected)
	}

	if err := c.guard.EnsureNetwork(ctx, meta.Network); err != nil {
		return "", c.fail(state, err)
	}
	state = c.advance(state, StateNetworkChecked, taskID)

	task, err := c.tasks.GetTask(ctx, taskID)
	if err != nil {
		return "", c.fail(state, fmt.Errorf("fetch task %s: %w", taskID, err))
	}
	if len(task.ProofBytes) == 0 || len(task.PublicValues) == 0 {
		return "", c.fail(state, fmt.Errorf("task %s: %w", taskID, model.ErrMissingProofData))
	}

	req := model.SubmissionRequest{
		ConfigName:   meta.ConfigName,
		PublicValues: task.PublicValues,
		ProofBytes:   task.ProofBytes,
		Sender:       account,
	}
	data := codec.EncodeCallData(codec.SelectorVerifyAndEmit, req.ConfigName, req.PublicValues, req.ProofBytes)
	state = c.advance(state, StateEncoded, taskID)

	hash, err := c.session.Provider().SendTransaction(ctx, wallet.TxRequest{
		From: req.Sender,
		To:   meta.ManagerAddress,
		Data: data,
	})
	if err != nil {
		return "", c.fail(state, fmt.Errorf("send transaction: %w", err))
	}
	state = c.advance(state, StateSent, taskID)

	c.tracker.RecordOptimistic(hash, account, meta.ManagerAddress)
	go c.trackConfirmation(hash, taskID)

	c.logger.Info("proof submitted",
		zap.String("task_id", taskID),
		zap.String("tx_hash", hash),
		zap.String("config_name", meta.ConfigName),
		zap.String("state", string(state)),
	)
	return hash, nil
}

// trackConfirmation follows the optimistic entry until it resolves or the
// poll deadline passes. It deliberately runs on a background context: per
// the concurrency model, confirmation polling is cancelled by its timeout
// alone.
func (c *Coordinator) trackConfirmation(hash, taskID string) {
	status, err := c.tracker.PollConfirmation(context.Background(), hash, c.PollInterval, c.PollTimeout)
	if err != nil {
		c.logger.Warn("confirmation tracking stopped", zap.String("tx_hash", hash), zap.Error(err))
		return
	}

	state := StateConfirmed
	if status == model.StatusFailed {
		state = StateFailed
	} else if status == model.StatusPending {
		c.logger.Info("confirmation still pending at deadline", zap.String("tx_hash", hash))
		return
	}
	c.logger.Info("submission resolved",
		zap.String("task_id", taskID),
		zap.String("tx_hash", hash),
		zap.String("state", string(state)),
	)
}

func (c *Coordinator) advance(from, to State, taskID string) State {
	c.logger.Debug("submission state",
		zap.String("task_id", taskID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return to
}

func (c *Coordinator) fail(state State, err error) error {
	c.logger.Warn("submission attempt failed",
		zap.String("state", string(state)),
		zap.Error(err),
	)
	return err
}
