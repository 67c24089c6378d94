package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/snoopy/proofwatch/internal/model"
)

type fakeProvider struct {
	accounts    []string
	chainID     uint64
	switchErr   error
	switchedTo  uint64
	sendTxHash  string
	sendErr     error
	lastRequest TxRequest
}

func (f *fakeProvider) RequestAccounts(context.Context) ([]string, error) {
	return f.accounts, nil
}

func (f *fakeProvider) Accounts(context.Context) ([]string, error) {
	return f.accounts, nil
}

func (f *fakeProvider) ChainID(context.Context) (uint64, error) {
	return f.chainID, nil
}

func (f *fakeProvider) SwitchChain(_ context.Context, chainID uint64) error {
	if f.switchErr != nil {
		return f.switchErr
	}
	f.switchedTo = chainID
	f.chainID = chainID
	return nil
}

func (f *fakeProvider) SendTransaction(_ context.Context, tx TxRequest) (string, error) {
	f.lastRequest = tx
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sendTxHash, nil
}

func TestEnsureNetworkAlreadyCorrect(t *testing.T) {
	provider := &fakeProvider{chainID: 11155111}
	if err := NewGuard(provider, nil).EnsureNetwork(context.Background(), "sepolia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.switchedTo != 0 {
		t.Fatalf("switch requested on matching chain")
	}
}

func TestEnsureNetworkSwitches(t *testing.T) {
	provider := &fakeProvider{chainID: 1}
	if err := NewGuard(provider, nil).EnsureNetwork(context.Background(), "sepolia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.switchedTo != 11155111 {
		t.Fatalf("switched to %d, want 11155111", provider.switchedTo)
	}
}

func TestEnsureNetworkChainUnknown(t *testing.T) {
	provider := &fakeProvider{
		chainID:   1,
		switchErr: &ProviderError{Code: CodeChainNotAdded, Message: "chain not added"},
	}
	err := NewGuard(provider, nil).EnsureNetwork(context.Background(), "sepolia")

	var wrong *model.WrongNetworkError
	if !errors.As(err, &wrong) {
		t.Fatalf("expected WrongNetworkError, got %v", err)
	}
	if wrong.Reason != model.ReasonChainUnknown {
		t.Fatalf("expected chain_unknown, got %s", wrong.Reason)
	}
	if wrong.ChainID != 11155111 {
		t.Fatalf("expected target chain id in error, got %d", wrong.ChainID)
	}
}

func TestEnsureNetworkSwitchDeclined(t *testing.T) {
	provider := &fakeProvider{
		chainID:   1,
		switchErr: &ProviderError{Code: 4001, Message: "user rejected"},
	}
	err := NewGuard(provider, nil).EnsureNetwork(context.Background(), "sepolia")

	var wrong *model.WrongNetworkError
	if !errors.As(err, &wrong) || wrong.Reason != model.ReasonSwitchDeclined {
		t.Fatalf("expected switch_declined, got %v", err)
	}
}

func TestEnsureNetworkUnknownName(t *testing.T) {
	provider := &fakeProvider{chainID: 1}
	err := NewGuard(provider, nil).EnsureNetwork(context.Background(), "testnet-9000")

	var wrong *model.WrongNetworkError
	if !errors.As(err, &wrong) || wrong.Reason != model.ReasonUnknownNetwork {
		t.Fatalf("expected unknown_network, got %v", err)
	}
	if provider.switchedTo != 0 {
		t.Fatalf("switch attempted for unknown network name")
	}
}
