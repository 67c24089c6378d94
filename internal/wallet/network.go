package wallet

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/model"
)

var chainIDByNetwork = map[string]uint64{
	"mainnet": 1,
	"sepolia": 11155111,
	"holesky": 17000,
}

// ChainIDForNetwork maps a known network name to its chain id.
func ChainIDForNetwork(name string) (uint64, bool) {
	id, ok := chainIDByNetwork[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Guard verifies the wallet's active chain before a submission.
type Guard struct {
	provider Provider
	logger   *zap.Logger
}

// NewGuard builds a network guard over a provider.
func NewGuard(provider Provider, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{provider: provider, logger: logger}
}

// EnsureNetwork checks that the wallet is on the chain named by the expected
// network and requests a switch when it is not. There is no retry: switching
// is a user-in-the-loop operation. A wallet that does not know the chain
// yields a distinct, non-retryable error.
func (g *Guard) EnsureNetwork(ctx context.Context, expected string) error {
	want, ok := ChainIDForNetwork(expected)
	if !ok {
		return &model.WrongNetworkError{Expected: expected, Reason: model.ReasonUnknownNetwork}
	}

	current, err := g.provider.ChainID(ctx)
	if err != nil {
		return err
	}
	if current == want {
		return nil
	}

	g.logger.Info("requesting chain switch",
		zap.String("network", expected),
		zap.Uint64("current_chain_id", current),
		zap.Uint64("want_chain_id", want),
	)

	switchErr := g.provider.SwitchChain(ctx, want)
	if switchErr == nil {
		return nil
	}

	var provErr *ProviderError
	if errors.As(switchErr, &provErr) && provErr.Code == CodeChainNotAdded {
		return &model.WrongNetworkError{Expected: expected, ChainID: want, Reason: model.ReasonChainUnknown}
	}
	return &model.WrongNetworkError{Expected: expected, ChainID: want, Reason: model.ReasonSwitchDeclined}
}
