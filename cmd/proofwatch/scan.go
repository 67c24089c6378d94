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
	"github.com/snoopy/proofwatch/internal/scanner"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScan(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	logger.Info("scan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.Contract),
		zap.String("from", cfg.From),
		zap.String("to", cfg.To),
		zap.Int("topic0", len(cfg.Topic0)),
	)

	events, err := scanner.New(chainClient, logger).QueryEvents(ctx, cfg.Contract, cfg.From, cfg.To, cfg.Topic0)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}

	logger.Info("scan done", zap.Int("events", len(events)))
	return nil
}
