package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// txBackend is the slice of the chain client a keyed provider signs against.
type txBackend interface {
	ChainID(ctx context.Context) (uint64, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)
	GasPrice(ctx context.Context) (*hexutil.Big, error)
	EstimateGas(ctx context.Context, msg map[string]interface{}) (uint64, error)
	SendRawTransaction(ctx context.Context, signed []byte) (string, error)
}

// KeyedProvider implements Provider over a locally-held private key and a
// plain RPC endpoint, for headless use where no browser wallet exists. It is
// pinned to the endpoint's chain, so switch requests behave like a wallet
// that does not know the requested chain.
type KeyedProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	backend txBackend
	logger  *zap.Logger
}

// NewKeyedProvider builds a provider from a hex-encoded private key.
func NewKeyedProvider(hexKey string, backend txBackend, logger *zap.Logger) (*KeyedProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyedProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		backend: backend,
		logger:  logger,
	}, nil
}

// Address returns the provider's account address.
func (p *KeyedProvider) Address() string {
	return strings.ToLower(p.address.Hex())
}

// RequestAccounts returns the single key-derived account.
func (p *KeyedProvider) RequestAccounts(context.Context) ([]string, error) {
	return []string{p.Address()}, nil
}

// Accounts returns the single key-derived account.
func (p *KeyedProvider) Accounts(context.Context) ([]string, error) {
	return []string{p.Address()}, nil
}

// ChainID reports the endpoint's chain id.
func (p *KeyedProvider) ChainID(ctx context.Context) (uint64, error) {
	return p.backend.ChainID(ctx)
}

// SwitchChain succeeds only when the endpoint already is the requested
// chain; a keyed provider cannot change endpoints.
func (p *KeyedProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	current, err := p.backend.ChainID(ctx)
	if err != nil {
		return err
	}
	if current == chainID {
		return nil
	}
	return &ProviderError{Code: CodeChainNotAdded, Message: "keyed provider is pinned to its endpoint"}
}

// SendTransaction signs a legacy transaction with the local key and
// broadcasts it as raw bytes.
func (p *KeyedProvider) SendTransaction(ctx context.Context, tx TxRequest) (string, error) {
	chainID, err := p.backend.ChainID(ctx)
	if err != nil {
		return "", err
	}
	nonce, err := p.backend.PendingNonce(ctx, p.Address())
	if err != nil {
		return "", err
	}
	gasPrice, err := p.backend.GasPrice(ctx)
	if err != nil {
		return "", err
	}

	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	msg := map[string]interface{}{
		"from":  p.Address(),
		"to":    tx.To,
		"data":  hexutil.Encode(tx.Data),
		"value": (*hexutil.Big)(value),
	}
	gas, err := p.backend.EstimateGas(ctx, msg)
	if err != nil {
		return "", err
	}

	to := common.HexToAddress(tx.To)
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice.ToInt(),
		Data:     tx.Data,
	})
	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), p.key)
	if err != nil {
		return "", err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", err
	}

	p.logger.Debug("broadcasting signed transaction",
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
		zap.String("to", tx.To),
	)
	return p.backend.SendRawTransaction(ctx, raw)
}
