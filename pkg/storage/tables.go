// Package storage defines the raw chain data tables and the BlockStore
// interface the indexer persists through.
package storage

import (
	"time"

	"github.com/alchemix-finance/alchemist-indexer/pkg/parser"
	"gorm.io/gorm"
)

// Block is a processed chain block. Every indexed event references one of
// these rows through its block number.
type Block struct {
	Number     uint64
	Hash       string
	ParentHash string
	BlockTime  time.Time
	CreatedAt  time.Time
}

// TransactionLog is a decoded event log emitted by one of the watched
// contracts. Arguments holds the JSON-encoded parameter list (indexed values
// included); OutputData holds the JSON-encoded non-indexed data.
type TransactionLog struct {
	TransactionHash  string
	TransactionIndex uint64
	BlockNumber      uint64
	Address          string
	Arguments        string
	EventName        string
	LogIndex         uint64
	OutputData       string
	CreatedAt        time.Time
}

type BlockStore interface {
	// WithTx returns a view of the store whose writes and reads run inside
	// the given transaction.
	WithTx(tx *gorm.DB) BlockStore
	InsertBlockAtHeight(blockNumber uint64, hash string, parentHash string, blockTime uint64) (*Block, error)
	InsertTransactionLog(txHash string, transactionIndex uint64, blockNumber uint64, log *parser.DecodedLog, outputData map[string]interface{}, ignoreOnConflict bool) (*TransactionLog, error)
	GetLatestBlock() (*Block, error)
	GetBlockByNumber(blockNumber uint64) (*Block, error)
	ListTransactionLogsForBlock(blockNumber uint64) ([]*TransactionLog, error)
	DeleteCorruptedState(startBlockNumber uint64, endBlockNumber uint64) error
}
