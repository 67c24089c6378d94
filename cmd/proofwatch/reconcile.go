package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/chain"
	"github.com/snoopy/proofwatch/internal/config"
	"github.com/snoopy/proofwatch/internal/ledger"
	"github.com/snoopy/proofwatch/internal/ledger/postgres"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconcile(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Account == "" {
		return fmt.Errorf("account is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	logger.Info("reconcile start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.Contract),
		zap.String("account", cfg.Account),
		zap.Uint64("lookback", cfg.Lookback),
	)

	ledgerStore := ledger.New(chainClient, logger)
	if err := ledgerStore.ReconcileFromChain(ctx, cfg.Contract, cfg.Account, cfg.Lookback); err != nil {
		return err
	}
	ledgerStore.FetchMissingTimestamps(ctx)

	entries := ledgerStore.Entries()
	enc := json.NewEncoder(os.Stdout)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := store.UpsertEntries(ctx, cfg.Account, entries); err != nil {
			return fmt.Errorf("persist entries: %w", err)
		}
		logger.Info("entries persisted", zap.Int("count", len(entries)))
	}

	logger.Info("reconcile done", zap.Int("entries", len(entries)))
	return nil
}
