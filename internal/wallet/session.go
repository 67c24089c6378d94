package wallet

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/model"
)

// Session tracks the currently connected account and reacts to the
// provider's push events. State that depends on the account or chain
// registers callbacks: a removed or switched account fires the disconnect
// hooks (ledger and session reset), a chain change fires the chain hooks
// (cached metadata and chain ids are invalid).
type Session struct {
	provider Provider
	logger   *zap.Logger

	mu           sync.Mutex
	account      string
	onDisconnect []func()
	onChain      []func(chainID uint64)
}

// NewSession builds a session over a provider.
func NewSession(provider Provider, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{provider: provider, logger: logger}
}

// Connect asks the wallet for its accounts and adopts the first one.
func (s *Session) Connect(ctx context.Context) (string, error) {
	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", model.ErrNotConnected
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.mu.Unlock()

	s.logger.Info("wallet connected", zap.String("account", accounts[0]))
	return accounts[0], nil
}

// Account returns the connected account, or empty when disconnected.
func (s *Session) Account() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// Provider exposes the underlying provider for submission.
func (s *Session) Provider() Provider { return s.provider }

// OnDisconnect registers a hook fired when the account goes away or changes.
func (s *Session) OnDisconnect(fn func()) {
	s.mu.Lock()
	s.onDisconnect = append(s.onDisconnect, fn)
	s.mu.Unlock()
}

// OnChainChanged registers a hook fired when the wallet switches chains.
func (s *Session) OnChainChanged(fn func(chainID uint64)) {
	s.mu.Lock()
	s.onChain = append(s.onChain, fn)
	s.mu.Unlock()
}

// Bind subscribes the session to the provider's push events.
func (s *Session) Bind(notifier Notifier) {
	notifier.OnAccountsChanged(s.handleAccountsChanged)
	notifier.OnChainChanged(s.handleChainChanged)
}

// Disconnect clears the account and fires the disconnect hooks.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.account = ""
	hooks := append([]func(){}, s.onDisconnect...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (s *Session) handleAccountsChanged(accounts []string) {
	s.mu.Lock()
	previous := s.account
	next := ""
	if len(accounts) > 0 {
		next = accounts[0]
	}
	s.account = next
	hooks := append([]func(){}, s.onDisconnect...)
	s.mu.Unlock()

	if next == previous {
		return
	}

	s.logger.Info("wallet accounts changed", zap.String("account", next))
	// Ledger contents belong to the previous account either way.
	for _, fn := range hooks {
		fn()
	}
}

func (s *Session) handleChainChanged(chainID uint64) {
	s.mu.Lock()
	hooks := append([]func(uint64){}, s.onChain...)
	s.mu.Unlock()

	s.logger.Info("wallet chain changed", zap.Uint64("chain_id", chainID))
	for _, fn := range hooks {
		fn(chainID)
	}
}
