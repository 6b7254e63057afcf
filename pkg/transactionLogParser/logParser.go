package transactionLogParser

import (
	"fmt"
	"strings"

	"github.com/alchemix-finance/alchemist-indexer/pkg/contractAbi"
	"github.com/alchemix-finance/alchemist-indexer/pkg/parser"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// InterestingLogQualifier defines an interface for determining if a contract
// address is of interest for log parsing.
type InterestingLogQualifier interface {
	// IsInterestingAddress determines if logs from the given address should be processed
	IsInterestingAddress(address string) bool
}

// TransactionLogParser decodes event logs emitted by the AlchemistV2
// contracts into the structured form the state models consume.
type TransactionLogParser struct {
	logger                  *zap.Logger
	alchemistAbi            *abi.ABI
	interestingLogQualifier InterestingLogQualifier
}

func NewTransactionLogParser(
	logger *zap.Logger,
	interestingLogQualifier InterestingLogQualifier,
) (*TransactionLogParser, error) {
	a, err := contractAbi.AlchemistV2Abi(logger)
	if err != nil {
		return nil, err
	}
	return &TransactionLogParser{
		logger:                  logger,
		alchemistAbi:            a,
		interestingLogQualifier: interestingLogQualifier,
	}, nil
}

// ParseReceiptLogs decodes every interesting log found in the receipt.
// Unknown events emitted by a watched contract are skipped rather than
// treated as errors; the embedded ABI only covers the events we index.
func (tlp *TransactionLogParser) ParseReceiptLogs(receipt *types.Receipt) ([]*parser.DecodedLog, error) {
	logs := make([]*parser.DecodedLog, 0)

	for i, lg := range receipt.Logs {
		if !tlp.interestingLogQualifier.IsInterestingAddress(strings.ToLower(lg.Address.Hex())) {
			continue
		}

		decodedLog, err := tlp.DecodeLog(lg)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				continue
			}
			tlp.logger.Sugar().Errorw(fmt.Sprintf("Error decoding log - index: '%d' - '%s'", i, receipt.TxHash.Hex()),
				zap.String("logAddress", lg.Address.Hex()),
				zap.Uint64("blockNumber", receipt.BlockNumber.Uint64()),
				zap.Uint("logIndex", lg.Index),
				zap.Error(err),
			)
			return nil, err
		}
		logs = append(logs, decodedLog)
	}
	return logs, nil
}

// ErrUnknownEvent marks a log whose topic hash is not part of the embedded ABI.
var ErrUnknownEvent = errors.New("unknown event for embedded abi")

// DecodeLog decodes a single log. Indexed parameters land in Arguments with
// their values set; non-indexed data lands in OutputData.
func (tlp *TransactionLogParser) DecodeLog(lg *types.Log) (*parser.DecodedLog, error) {
	tlp.logger.Sugar().Debugw(fmt.Sprintf("Decoding log with txHash: '%s' address: '%s'", lg.TxHash.Hex(), lg.Address.Hex()))

	if len(lg.Topics) == 0 {
		return nil, ErrUnknownEvent
	}

	event, err := tlp.alchemistAbi.EventByID(lg.Topics[0])
	if err != nil {
		return nil, ErrUnknownEvent
	}

	decodedLog := &parser.DecodedLog{
		Address:   lg.Address.String(),
		LogIndex:  uint64(lg.Index),
		EventName: event.RawName,
		Arguments: make([]parser.Argument, len(event.Inputs)),
	}

	for i, input := range event.Inputs {
		decodedLog.Arguments[i] = parser.Argument{
			Name:    input.Name,
			Type:    input.Type.String(),
			Indexed: input.Indexed,
		}
	}

	if len(lg.Topics) > 1 {
		for i, param := range lg.Topics[1:] {
			d, err := ParseLogValueForType(event.Inputs[i], param)
			if err != nil {
				tlp.logger.Sugar().Errorw("Failed to parse log value for type", zap.Error(err))
			} else {
				decodedLog.Arguments[i].Value = d
			}
		}
	}

	if len(lg.Data) > 0 {
		outputDataMap := make(map[string]interface{})
		err = tlp.alchemistAbi.UnpackIntoMap(outputDataMap, event.Name, lg.Data)
		if err != nil {
			tlp.logger.Sugar().Errorw("Failed to unpack data",
				zap.Error(err),
				zap.String("hash", lg.TxHash.Hex()),
				zap.String("address", lg.Address.Hex()),
				zap.String("eventName", event.Name),
			)
			return nil, errors.New("failed to unpack data")
		}

		decodedLog.OutputData = outputDataMap
	}
	return decodedLog, nil
}

// ParseLogValueForType converts an indexed topic to an appropriate Go type
// based on the ABI argument type.
func ParseLogValueForType(argument abi.Argument, topic common.Hash) (interface{}, error) {
	valueBytes := topic.Bytes()
	switch argument.Type.T {
	case abi.IntTy, abi.UintTy:
		return abi.ReadInteger(argument.Type, valueBytes)
	case abi.BoolTy:
		return readBool(valueBytes)
	case abi.AddressTy:
		return common.BytesToAddress(valueBytes), nil
	case abi.StringTy:
		return topic.Hex(), nil
	case abi.BytesTy, abi.FixedBytesTy:
		// return value as-is; hex encoded string
		return topic.Hex(), nil
	default:
		return topic.Hex(), nil
	}
}

// errBadBool is returned when a boolean value in an Ethereum log is improperly encoded.
var (
	errBadBool = fmt.Errorf("abi: improperly encoded boolean value")
)

// readBool converts a 32-byte word to a boolean value.
// Valid encodings have all bytes except the last one set to zero,
// and the last byte set to either 0 (false) or 1 (true).
func readBool(word []byte) (bool, error) {
	for _, b := range word[:31] {
		if b != 0 {
			return false, errBadBool
		}
	}
	switch word[31] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errBadBool
	}
}
