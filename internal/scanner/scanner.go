// Package scanner issues bounded historical log queries and classifies raw
// entries into typed events. Classification keys off the signature topic
// alone; anything unrecognized or malformed degrades to an Unknown event so
// one bad log never hides the rest of a batch.
package scanner

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/chain"
	"github.com/snoopy/proofwatch/internal/codec"
	"github.com/snoopy/proofwatch/internal/model"
)

// ChainReader is the slice of the chain client the scanner consumes.
type ChainReader interface {
	GetLogs(ctx context.Context, query chain.LogQuery) ([]chain.Log, error)
}

// Scanner maps raw logs into typed events.
type Scanner struct {
	chain  ChainReader
	logger *zap.Logger
}

// New builds a Scanner.
func New(chainClient ChainReader, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{chain: chainClient, logger: logger}
}

// QueryEvents fetches logs for one bounded range and decodes them. Block
// parameters accept latest/earliest/pending, hex, or decimal strings. Any RPC
// failure aborts the whole query; partial results are never returned.
func (s *Scanner) QueryEvents(ctx context.Context, contract, fromBlock, toBlock string, topic0 []string) ([]model.DecodedEvent, error) {
	query := chain.LogQuery{
		Address:   contract,
		FromBlock: codec.FormatBlockParam(fromBlock),
		ToBlock:   codec.FormatBlockParam(toBlock),
	}
	if len(topic0) > 0 {
		query.Topics = [][]string{topic0}
	}

	logs, err := s.chain.GetLogs(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]model.DecodedEvent, 0, len(logs))
	for _, log := range logs {
		events = append(events, s.decode(log))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].BlockNumber > events[j].BlockNumber
	})
	return events, nil
}

func (s *Scanner) decode(log chain.Log) model.DecodedEvent {
	event := model.DecodedEvent{
		Kind:        model.EventUnknown,
		BlockNumber: uint64(log.BlockNumber),
		TxHash:      log.TxHash,
		LogIndex:    uint64(log.LogIndex),
		Topics:      log.Topics,
		Data:        log.Data,
	}
	if len(log.Topics) == 0 {
		return event
	}

	kind, fields, ok := decodeFields(log)
	if !ok {
		s.logger.Debug("log payload did not match its signature",
			zap.String("topic0", log.Topics[0]),
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", uint64(log.LogIndex)),
		)
		return event
	}

	event.Kind = kind
	event.Fields = fields
	return event
}

func decodeFields(log chain.Log) (model.EventKind, interface{}, bool) {
	switch codec.DecodeTopicAsBytes32(log.Topics[0]) {
	case codec.TopicFraudFound:
		return decodeFraudFound(log)
	case codec.TopicRoleAdminChanged:
		if len(log.Topics) < 4 {
			return model.EventUnknown, nil, false
		}
		return model.EventRoleAdminChanged, model.RoleAdminChangedFields{
			Role:              codec.DecodeTopicAsBytes32(log.Topics[1]),
			PreviousAdminRole: codec.DecodeTopicAsBytes32(log.Topics[2]),
			NewAdminRole:      codec.DecodeTopicAsBytes32(log.Topics[3]),
		}, true
	case codec.TopicRoleGranted:
		return decodeRoleMember(model.EventRoleGranted, log)
	case codec.TopicRoleRevoked:
		return decodeRoleMember(model.EventRoleRevoked, log)
	default:
		return model.EventUnknown, nil, false
	}
}

func decodeFraudFound(log chain.Log) (model.EventKind, interface{}, bool) {
	if len(log.Topics) < 2 {
		return model.EventUnknown, nil, false
	}
	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return model.EventUnknown, nil, false
	}
	configName, ok := codec.DecodeDynamicString(data, 0)
	if !ok {
		return model.EventUnknown, nil, false
	}
	return model.EventFraudFound, model.FraudFoundFields{
		ConfigName: configName,
		QueryHash:  codec.DecodeTopicAsBytes32(log.Topics[1]),
	}, true
}

func decodeRoleMember(kind model.EventKind, log chain.Log) (model.EventKind, interface{}, bool) {
	if len(log.Topics) < 4 {
		return model.EventUnknown, nil, false
	}
	return kind, model.RoleMemberFields{
		Role:    codec.DecodeTopicAsBytes32(log.Topics[1]),
		Account: codec.DecodeTopicAsAddress(log.Topics[2]),
		Sender:  codec.DecodeTopicAsAddress(log.Topics[3]),
	}, true
}
