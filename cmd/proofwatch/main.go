package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "proofwatch",
		Short:        "Proof submission and chain reconciliation tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a block range for manager contract events",
		RunE:  runScan,
	}

	scanCmd.Flags().String("rpc", "", "JSON-RPC endpoint (ws schemes are rewritten to http)")
	scanCmd.Flags().String("contract", "", "manager contract address")
	scanCmd.Flags().String("from", "earliest", "start block (decimal, 0x hex, or tag)")
	scanCmd.Flags().String("to", "latest", "end block (decimal, 0x hex, or tag)")
	scanCmd.Flags().StringSlice("topic0", nil, "topic0 filters (comma-separated 0x hashes)")
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scanCmd)

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a task's proof to the manager contract",
		RunE:  runSubmit,
	}

	submitCmd.Flags().String("api-url", "", "task service base URL")
	submitCmd.Flags().String("task-id", "", "existing task to submit")
	submitCmd.Flags().String("query-id", "", "create a task for this query id first")
	submitCmd.Flags().Uint64("ts", 0, "query timestamp (unix seconds) for --query-id")
	submitCmd.Flags().String("network", "mainnet", "expected network when metadata omits one")
	submitCmd.Flags().Duration("poll-interval", 2*time.Second, "confirmation poll interval")
	submitCmd.Flags().Duration("poll-timeout", 5*time.Minute, "confirmation poll deadline")
	submitCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(submitCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild an account's submission ledger from chain history",
		RunE:  runReconcile,
	}

	reconcileCmd.Flags().String("rpc", "", "JSON-RPC endpoint (ws schemes are rewritten to http)")
	reconcileCmd.Flags().String("contract", "", "manager contract address")
	reconcileCmd.Flags().String("account", "", "sender account to reconcile")
	reconcileCmd.Flags().Uint64("lookback", 10000, "blocks to scan back from latest")
	reconcileCmd.Flags().String("pg-dsn", "", "optional Postgres DSN to persist entries")
	reconcileCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reconcileCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
