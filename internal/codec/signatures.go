package codec

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Selectors and signature topics for the ProvingManager surface, computed
// from the canonical signatures rather than hardcoded.
var (
	// SelectorVerifyAndEmit is the 4-byte selector of
	// verifyAndEmit(string configName, bytes publicValues, bytes proofBytes).
	SelectorVerifyAndEmit [4]byte

	TopicFraudFound       string
	TopicRoleAdminChanged string
	TopicRoleGranted      string
	TopicRoleRevoked      string
)

func init() {
	copy(SelectorVerifyAndEmit[:], crypto.Keccak256([]byte("verifyAndEmit(string,bytes,bytes)"))[:4])

	TopicFraudFound = signatureTopic("FraudFound(string,bytes32)")
	TopicRoleAdminChanged = signatureTopic("RoleAdminChanged(bytes32,bytes32,bytes32)")
	TopicRoleGranted = signatureTopic("RoleGranted(bytes32,address,address)")
	TopicRoleRevoked = signatureTopic("RoleRevoked(bytes32,address,address)")
}

func signatureTopic(signature string) string {
	return common.BytesToHash(crypto.Keccak256([]byte(signature))).Hex()
}
