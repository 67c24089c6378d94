// Package wallet consumes a wallet provider's capability surface: account
// access, chain switching, and transaction submission, plus the asynchronous
// account/chain push events.
package wallet

import (
	"context"
	"fmt"
	"math/big"
)

// TxRequest is one transaction to send through the provider.
type TxRequest struct {
	From  string
	To    string
	Data  []byte
	Value *big.Int
}

// Provider is the capability surface this subsystem needs from a wallet.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	SendTransaction(ctx context.Context, tx TxRequest) (string, error)
}

// Notifier delivers the provider's push events. It is separate from Provider
// so the engine does not depend on any particular event-emitter API.
type Notifier interface {
	OnAccountsChanged(fn func(accounts []string))
	OnChainChanged(fn func(chainID uint64))
}

// CodeChainNotAdded is the provider error code for a switch request naming a
// chain the wallet has no configuration for.
const CodeChainNotAdded = 4902

// ProviderError is an error reported by the wallet provider itself.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet provider error %d: %s", e.Code, e.Message)
}
