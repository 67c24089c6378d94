// Package chain is a thin JSON-RPC 2.0 client for the Ethereum methods the
// dashboard consumes. Logs are kept in raw hex form; all interpretation
// happens in the codec and scanner packages.
package chain

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/snoopy/proofwatch/internal/model"
)

// Log is a raw eth_getLogs entry.
type Log struct {
	Address     string         `json:"address"`
	Topics      []string       `json:"topics"`
	Data        string         `json:"data"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	TxHash      string         `json:"transactionHash"`
	LogIndex    hexutil.Uint64 `json:"logIndex"`
	Removed     bool           `json:"removed"`
}

// Transaction is the subset of eth_getTransactionByHash the ledger needs.
type Transaction struct {
	Hash        string          `json:"hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
}

// Receipt is the subset of eth_getTransactionReceipt the ledger needs.
type Receipt struct {
	TxHash      string          `json:"transactionHash"`
	Status      hexutil.Uint64  `json:"status"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
}

// LogQuery is the eth_getLogs filter object. Block fields must already be
// normalized block parameters.
type LogQuery struct {
	Address   string     `json:"address"`
	FromBlock string     `json:"fromBlock"`
	ToBlock   string     `json:"toBlock"`
	Topics    [][]string `json:"topics,omitempty"`
}

type blockHeader struct {
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// Client wraps a JSON-RPC connection and caches block timestamps.
type Client struct {
	rpcClient *rpc.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NormalizeEndpoint rewrites websocket URLs to their HTTP equivalents. The
// dashboard only issues request/response calls, so a wss endpoint from the
// metadata service is dialed over https.
func NormalizeEndpoint(raw string) string {
	switch {
	case strings.HasPrefix(raw, "wss://"):
		return "https://" + strings.TrimPrefix(raw, "wss://")
	case strings.HasPrefix(raw, "ws://"):
		return "http://" + strings.TrimPrefix(raw, "ws://")
	default:
		return raw
	}
}

// NewClient dials the RPC endpoint after normalizing it.
func NewClient(ctx context.Context, rawURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, NormalizeEndpoint(rawURL))
	if err != nil {
		return nil, err
	}
	return &Client{
		rpcClient: rpcClient,
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// call performs one JSON-RPC call and wraps failures into model.RPCError,
// separating provider-reported errors from transport ones.
func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	err := c.rpcClient.CallContext(ctx, result, method, args...)
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &model.RPCError{
			Kind:    model.RPCProtocol,
			Method:  method,
			Code:    rpcErr.ErrorCode(),
			Message: rpcErr.Error(),
			Err:     err,
		}
	}
	return &model.RPCError{Kind: model.RPCTransport, Method: method, Err: err}
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var latest hexutil.Uint64
	if err := c.call(ctx, &latest, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(latest), nil
}

// ChainID returns the chain id reported by the endpoint.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetLogs returns raw logs matching the filter.
func (c *Client) GetLogs(ctx context.Context, query LogQuery) ([]Log, error) {
	var logs []Log
	if err := c.call(ctx, &logs, "eth_getLogs", query); err != nil {
		return nil, err
	}
	return logs, nil
}

// TransactionByHash resolves a transaction. A nil result without error means
// the node does not know the hash.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	var tx *Transaction
	if err := c.call(ctx, &tx, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	return tx, nil
}

// TransactionReceipt fetches a receipt. A nil result without error means the
// transaction is not yet included in a block.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt *Receipt
	if err := c.call(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	return receipt, nil
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	var header *blockHeader
	if err := c.call(ctx, &header, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false); err != nil {
		return 0, err
	}
	if header == nil {
		return 0, &model.RPCError{Kind: model.RPCProtocol, Method: "eth_getBlockByNumber", Message: "block not found"}
	}

	ts = uint64(header.Timestamp)
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// PendingNonce returns the next nonce for an address.
func (c *Client) PendingNonce(ctx context.Context, address string) (uint64, error) {
	var nonce hexutil.Uint64
	if err := c.call(ctx, &nonce, "eth_getTransactionCount", address, "pending"); err != nil {
		return 0, err
	}
	return uint64(nonce), nil
}

// GasPrice returns the current gas price suggestion.
func (c *Client) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	var price hexutil.Big
	if err := c.call(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return &price, nil
}

// EstimateGas estimates gas for a call object.
func (c *Client) EstimateGas(ctx context.Context, msg map[string]interface{}) (uint64, error) {
	var gas hexutil.Uint64
	if err := c.call(ctx, &gas, "eth_estimateGas", msg); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

// SendRawTransaction broadcasts a signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, signed []byte) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(signed)); err != nil {
		return "", err
	}
	return hash, nil
}
