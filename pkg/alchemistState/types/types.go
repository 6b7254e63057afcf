package types

import (
	"context"

	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"gorm.io/gorm"
)

// SlotID uniquely identifies a state change within a block, derived from the
// transaction hash and log index of the event that produced it.
type SlotID string

// IAlchemistStateModel is implemented by each event handler. A model declares
// which logs it cares about and applies one log at a time inside the
// transaction the state manager hands it.
type IAlchemistStateModel interface {
	GetModelName() string

	// IsInterestingLog reports whether the model handles this log.
	IsInterestingLog(log *storage.TransactionLog) bool

	// HandleTransactionLog applies the log's state change using tx. The
	// caller owns the transaction; returning an error rolls back everything
	// the model wrote for this log.
	HandleTransactionLog(ctx context.Context, log *storage.TransactionLog, tx *gorm.DB) (interface{}, error)
}
