package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultRPCURL is used when neither flags, env, nor the task service
// supply an endpoint. Websocket schemes are rewritten to HTTP by the
// chain client before dialing.
const DefaultRPCURL = "wss://ethereum-sepolia-rpc.publicnode.com"

// DefaultConfigName is the proof configuration submitted when none is given.
const DefaultConfigName = "std-long"

// DefaultManagerAddress is the deployed manager contract.
const DefaultManagerAddress = "0x9f9d8535e8A2E503E034b142F136ABF3BeCF3CF2"

// newViper builds a viper instance that merges config file, PROOFWATCH_*
// environment variables, and command flags, in ascending precedence.
func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("PROOFWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("proofwatch")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

// ScanConfig drives a bounded historical event scan.
type ScanConfig struct {
	RPCURL   string
	Contract string
	From     string
	To       string
	Topic0   []string
	LogLevel string
}

// LoadScan merges config sources for the scan subcommand.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ScanConfig{}, err
	}

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("contract", DefaultManagerAddress)
	v.SetDefault("from", "earliest")
	v.SetDefault("to", "latest")
	v.SetDefault("log-level", "info")

	return ScanConfig{
		RPCURL:   v.GetString("rpc"),
		Contract: v.GetString("contract"),
		From:     v.GetString("from"),
		To:       v.GetString("to"),
		Topic0:   getStringSlice(v, "topic0"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// SubmitConfig drives an end-to-end proof submission. The RPC endpoint,
// manager address, config name, and network come from the task service's
// metadata; Network is only a fallback when the metadata omits one.
type SubmitConfig struct {
	APIURL       string
	TaskID       string
	QueryID      string
	Ts           uint64
	PrivateKey   string
	Network      string
	PollInterval time.Duration
	PollTimeout  time.Duration
	LogLevel     string
}

// LoadSubmit merges config sources for the submit subcommand. The private
// key is deliberately flag-less: PROOFWATCH_PRIVATE_KEY or the config file.
func LoadSubmit(cfgFile string, flags *pflag.FlagSet) (SubmitConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SubmitConfig{}, err
	}

	v.SetDefault("network", "mainnet")
	v.SetDefault("poll-interval", 2*time.Second)
	v.SetDefault("poll-timeout", 5*time.Minute)
	v.SetDefault("log-level", "info")

	return SubmitConfig{
		APIURL:       v.GetString("api-url"),
		TaskID:       v.GetString("task-id"),
		QueryID:      v.GetString("query-id"),
		Ts:           v.GetUint64("ts"),
		PrivateKey:   v.GetString("private-key"),
		Network:      v.GetString("network"),
		PollInterval: v.GetDuration("poll-interval"),
		PollTimeout:  v.GetDuration("poll-timeout"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// ReconcileConfig drives a ledger rebuild from chain history.
type ReconcileConfig struct {
	RPCURL   string
	Contract string
	Account  string
	Lookback uint64
	PGDSN    string
	LogLevel string
}

// LoadReconcile merges config sources for the reconcile subcommand.
func LoadReconcile(cfgFile string, flags *pflag.FlagSet) (ReconcileConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ReconcileConfig{}, err
	}

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("contract", DefaultManagerAddress)
	v.SetDefault("lookback", uint64(10000))
	v.SetDefault("log-level", "info")

	return ReconcileConfig{
		RPCURL:   v.GetString("rpc"),
		Contract: v.GetString("contract"),
		Account:  v.GetString("account"),
		Lookback: v.GetUint64("lookback"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
