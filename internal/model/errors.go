package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for submission preconditions.
var (
	// ErrNotConnected means no wallet account is available.
	ErrNotConnected = errors.New("wallet is not connected")
	// ErrMissingProofData means the task has no proof artifacts yet.
	ErrMissingProofData = errors.New("task has no proof bytes or public values")
)

// WrongNetworkReason distinguishes why a chain switch did not happen.
type WrongNetworkReason string

const (
	// ReasonChainUnknown: the wallet does not know the requested chain and
	// the user has to add it manually. Not retryable.
	ReasonChainUnknown WrongNetworkReason = "chain_unknown"
	// ReasonSwitchDeclined: the wallet rejected the switch request.
	ReasonSwitchDeclined WrongNetworkReason = "switch_declined"
	// ReasonUnknownNetwork: the expected network name maps to no chain id.
	ReasonUnknownNetwork WrongNetworkReason = "unknown_network"
)

// WrongNetworkError reports a chain id mismatch that could not be corrected.
type WrongNetworkError struct {
	Expected string
	ChainID  uint64
	Reason   WrongNetworkReason
}

func (e *WrongNetworkError) Error() string {
	switch e.Reason {
	case ReasonChainUnknown:
		return fmt.Sprintf("network %q (chain %d) is unknown to the wallet, add it manually", e.Expected, e.ChainID)
	case ReasonSwitchDeclined:
		return fmt.Sprintf("wallet declined switching to %q (chain %d), switch manually", e.Expected, e.ChainID)
	default:
		return fmt.Sprintf("unknown network name %q", e.Expected)
	}
}

// RPCErrorKind separates failures to reach an endpoint from failures reported
// by it.
type RPCErrorKind string

const (
	RPCTransport RPCErrorKind = "transport"
	RPCProtocol  RPCErrorKind = "protocol"
)

// RPCError wraps a failed JSON-RPC call. Protocol errors carry the provider's
// code and message so callers can render an actionable reason (for example an
// exceeded block range).
type RPCError struct {
	Kind    RPCErrorKind
	Method  string
	Code    int
	Message string
	Err     error
}

func (e *RPCError) Error() string {
	if e.Kind == RPCProtocol {
		return fmt.Sprintf("rpc %s failed: %s (code %d)", e.Method, e.Message, e.Code)
	}
	return fmt.Sprintf("rpc %s unreachable: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }
