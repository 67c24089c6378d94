package wallet

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeBackend struct {
	chainID uint64
	nonce   uint64
	raw     []byte
}

func (f *fakeBackend) ChainID(context.Context) (uint64, error) { return f.chainID, nil }

func (f *fakeBackend) PendingNonce(context.Context, string) (uint64, error) { return f.nonce, nil }

func (f *fakeBackend) GasPrice(context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(2_000_000_000)), nil
}

func (f *fakeBackend) EstimateGas(context.Context, map[string]interface{}) (uint64, error) {
	return 120_000, nil
}

func (f *fakeBackend) SendRawTransaction(_ context.Context, signed []byte) (string, error) {
	f.raw = append([]byte{}, signed...)
	return "0xhash", nil
}

func TestKeyedProviderSendTransaction(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	backend := &fakeBackend{chainID: 11155111, nonce: 7}
	provider, err := NewKeyedProvider(hexutil.Encode(crypto.FromECDSA(key)), backend, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	data := []byte{0xde, 0xad, 0xbe, 0xef}
	hash, err := provider.SendTransaction(context.Background(), TxRequest{
		From: provider.Address(),
		To:   "0x9f9d8535e8A2E503E034b142F136ABF3BeCF3CF2",
		Data: data,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if hash != "0xhash" {
		t.Fatalf("hash: %s", hash)
	}

	var decoded types.Transaction
	if err := decoded.UnmarshalBinary(backend.raw); err != nil {
		t.Fatalf("unmarshal raw tx: %v", err)
	}
	if decoded.Nonce() != 7 {
		t.Fatalf("nonce: %d", decoded.Nonce())
	}
	if decoded.Value().Sign() != 0 {
		t.Fatalf("value should be zero: %s", decoded.Value())
	}
	if !bytes.Equal(decoded.Data(), data) {
		t.Fatalf("data mismatch")
	}
	if !strings.EqualFold(decoded.To().Hex(), "0x9f9d8535e8A2E503E034b142F136ABF3BeCF3CF2") {
		t.Fatalf("to mismatch: %s", decoded.To().Hex())
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), &decoded)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if !strings.EqualFold(sender.Hex(), provider.Address()) {
		t.Fatalf("sender %s, want %s", sender.Hex(), provider.Address())
	}
}

func TestKeyedProviderSwitchChain(t *testing.T) {
	key, _ := crypto.GenerateKey()
	backend := &fakeBackend{chainID: 1}
	provider, err := NewKeyedProvider(hexutil.Encode(crypto.FromECDSA(key)), backend, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	if err := provider.SwitchChain(context.Background(), 1); err != nil {
		t.Fatalf("same chain should be a no-op: %v", err)
	}

	err = provider.SwitchChain(context.Background(), 11155111)
	provErr, ok := err.(*ProviderError)
	if !ok || provErr.Code != CodeChainNotAdded {
		t.Fatalf("expected chain-not-added provider error, got %v", err)
	}
}
