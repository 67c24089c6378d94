package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/chain"
	"github.com/snoopy/proofwatch/internal/config"
	"github.com/snoopy/proofwatch/internal/ledger"
	"github.com/snoopy/proofwatch/internal/model"
	"github.com/snoopy/proofwatch/internal/poll"
	"github.com/snoopy/proofwatch/internal/submit"
	"github.com/snoopy/proofwatch/internal/taskapi"
	"github.com/snoopy/proofwatch/internal/wallet"
)

// metadataFallback fills in the expected network when the task service's
// metadata omits one, so the network guard still fails closed on a wrong
// chain instead of comparing against an empty name.
type metadataFallback struct {
	*taskapi.Client
	network string
}

func (m metadataFallback) Metadata(ctx context.Context) (model.ChainMetadata, error) {
	meta, err := m.Client.Metadata(ctx)
	if err != nil {
		return meta, err
	}
	if meta.Network == "" {
		meta.Network = m.network
	}
	return meta, nil
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSubmit(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required (PROOFWATCH_PRIVATE_KEY or config file)")
	}
	if cfg.TaskID == "" && cfg.QueryID == "" {
		return fmt.Errorf("either task id or query id is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := taskapi.NewClient(cfg.APIURL, logger)
	tasks := metadataFallback{Client: api, network: cfg.Network}

	meta, err := tasks.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("load chain metadata: %w", err)
	}
	rpcURL := meta.RPCURL
	if rpcURL == "" {
		rpcURL = config.DefaultRPCURL
	}

	chainClient, err := chain.NewClient(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	provider, err := wallet.NewKeyedProvider(cfg.PrivateKey, chainClient, logger)
	if err != nil {
		return fmt.Errorf("load private key: %w", err)
	}

	session := wallet.NewSession(provider, logger)
	account, err := session.Connect(ctx)
	if err != nil {
		return err
	}

	taskID := cfg.TaskID
	if taskID == "" {
		taskID, err = createAndWait(ctx, api, cfg, logger)
		if err != nil {
			return err
		}
	}

	ledgerStore := ledger.New(chainClient, logger)
	session.OnDisconnect(ledgerStore.Clear)
	session.OnChainChanged(func(uint64) { api.InvalidateMetadata() })

	coordinator := submit.NewCoordinator(tasks, session, ledgerStore, logger)
	coordinator.PollInterval = cfg.PollInterval
	coordinator.PollTimeout = cfg.PollTimeout

	logger.Info("submitting proof",
		zap.String("task_id", taskID),
		zap.String("account", account),
		zap.String("manager", meta.ManagerAddress),
		zap.String("network", meta.Network),
	)

	hash, err := coordinator.Submit(ctx, taskID)
	if err != nil {
		return err
	}
	fmt.Println(hash)

	// The coordinator tracks confirmation in the background; hold the
	// process open until the entry resolves or the deadline passes.
	resolved, err := poll.Until(ctx, cfg.PollInterval, cfg.PollTimeout, func(context.Context) (bool, error) {
		entry, ok := ledgerStore.Get(hash)
		return ok && entry.Status != model.StatusPending, nil
	})
	if err != nil {
		return err
	}
	if !resolved {
		logger.Warn("transaction still pending at deadline", zap.String("tx_hash", hash))
		return nil
	}

	entry, _ := ledgerStore.Get(hash)
	if entry.Status == model.StatusFailed {
		return fmt.Errorf("transaction %s reverted", hash)
	}
	logger.Info("transaction confirmed", zap.String("tx_hash", hash))
	return nil
}

// createAndWait posts a task for the query and waits until proving finishes.
func createAndWait(ctx context.Context, api *taskapi.Client, cfg config.SubmitConfig, logger *zap.Logger) (string, error) {
	id, err := api.CreateTask(ctx, cfg.QueryID, cfg.Ts)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	logger.Info("task created", zap.String("task_id", id), zap.String("query_id", cfg.QueryID))

	task, err := api.WaitForTask(ctx, id, cfg.PollInterval, cfg.PollTimeout)
	if err != nil {
		return "", err
	}
	if task.Status != model.TaskCompleted {
		return "", fmt.Errorf("task %s ended %s: %s", id, task.Status, task.Comment)
	}
	return id, nil
}
