// Package codec implements the subset of the contract ABI the dashboard
// needs: offset-based dynamic types for call data and event payloads, and
// fixed-width topic words. Decoders treat their input as untrusted and fail
// soft instead of panicking.
package codec

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const wordSize = 32

// DecodeDynamicString reads a dynamically-encoded string argument out of
// event data. The head word at headWordIndex holds the byte offset of the
// tail, which holds a length word followed by the string bytes. Returns
// ok=false on any out-of-range offset or length.
func DecodeDynamicString(data []byte, headWordIndex int) (string, bool) {
	if headWordIndex < 0 {
		return "", false
	}
	offset, ok := wordAsUint(data, headWordIndex*wordSize)
	if !ok || offset > uint64(len(data)) {
		return "", false
	}
	length, ok := wordAsUint(data, int(offset))
	if !ok {
		return "", false
	}
	start := offset + wordSize
	if length > uint64(len(data)) || start+length > uint64(len(data)) {
		return "", false
	}
	return string(data[start : start+length]), true
}

// wordAsUint reads a 32-byte big-endian word at pos. Words with any of the
// high 24 bytes set do not fit in a uint64 and are rejected.
func wordAsUint(data []byte, pos int) (uint64, bool) {
	if pos < 0 || pos+wordSize > len(data) {
		return 0, false
	}
	word := data[pos : pos+wordSize]
	for _, b := range word[:wordSize-8] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(word[wordSize-8:]), true
}

// DecodeTopicAsAddress extracts the address occupying the low 20 bytes of a
// 32-byte topic word. An all-zero word yields the zero address.
func DecodeTopicAsAddress(topic string) string {
	hash := common.HexToHash(topic)
	return strings.ToLower(common.BytesToAddress(hash[12:]).Hex())
}

// DecodeTopicAsBytes32 returns the topic as a normalized 32-byte hex value.
func DecodeTopicAsBytes32(topic string) string {
	return common.HexToHash(topic).Hex()
}

// EncodeCallData builds the ABI payload for a 3-argument call
// (string, bytes, bytes): selector, three head offset words, then per
// argument a length word followed by the data zero-padded to a word boundary.
func EncodeCallData(selector [4]byte, configName string, publicValues, proofBytes []byte) []byte {
	args := [][]byte{[]byte(configName), publicValues, proofBytes}

	head := make([]byte, 0, len(args)*wordSize)
	tail := make([]byte, 0)
	offset := uint64(len(args) * wordSize)
	for _, arg := range args {
		head = append(head, uintWord(offset)...)
		enc := encodeDynamicBytes(arg)
		tail = append(tail, enc...)
		offset += uint64(len(enc))
	}

	out := make([]byte, 0, len(selector)+len(head)+len(tail))
	out = append(out, selector[:]...)
	out = append(out, head...)
	out = append(out, tail...)
	return out
}

func encodeDynamicBytes(data []byte) []byte {
	padded := (len(data) + wordSize - 1) / wordSize * wordSize
	out := make([]byte, wordSize+padded)
	copy(out, uintWord(uint64(len(data))))
	copy(out[wordSize:], data)
	return out
}

func uintWord(v uint64) []byte {
	word := make([]byte, wordSize)
	binary.BigEndian.PutUint64(word[wordSize-8:], v)
	return word
}

// FormatBlockParam normalizes a block identifier for eth_getLogs and friends.
// The literals latest/earliest/pending pass through, hex stays hex, decimal
// converts to hex. Anything else passes through unchanged and the server
// decides validity. Idempotent.
func FormatBlockParam(v string) string {
	v = strings.TrimSpace(v)
	switch lower := strings.ToLower(v); lower {
	case "latest", "earliest", "pending":
		return lower
	default:
		if strings.HasPrefix(lower, "0x") {
			return lower
		}
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return hexutil.EncodeUint64(n)
		}
		return v
	}
}
