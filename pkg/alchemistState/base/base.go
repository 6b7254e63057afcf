package base

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/types"
	"github.com/alchemix-finance/alchemist-indexer/pkg/parser"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"go.uber.org/zap"
)

// BaseAlchemistState carries the pieces every state model shares.
type BaseAlchemistState struct {
	Logger *zap.Logger
}

func NewSlotID(transactionHash string, logIndex uint64) types.SlotID {
	return types.SlotID(fmt.Sprintf("%s_%d", transactionHash, logIndex))
}

// ParseLogArguments decodes the stored JSON argument list back into parser
// arguments. Indexed event parameters surface here; everything else lives in
// the log's OutputData.
func (b *BaseAlchemistState) ParseLogArguments(log *storage.TransactionLog) ([]parser.Argument, error) {
	arguments := make([]parser.Argument, 0)
	err := json.Unmarshal([]byte(log.Arguments), &arguments)
	if err != nil {
		b.Logger.Sugar().Errorw("Failed to parse transaction log arguments",
			zap.Error(err),
			zap.String("transactionHash", log.TransactionHash),
			zap.Uint64("logIndex", log.LogIndex),
		)
		return nil, err
	}
	return arguments, nil
}

// IsInterestingLog checks the log against a map of contract address to the
// event names the model handles. Addresses are compared lowercase.
func (b *BaseAlchemistState) IsInterestingLog(contractsEvents map[string][]string, log *storage.TransactionLog) bool {
	logAddress := strings.ToLower(log.Address)
	if eventNames, ok := contractsEvents[logAddress]; ok {
		if slices.Contains(eventNames, log.EventName) {
			return true
		}
	}
	return false
}
