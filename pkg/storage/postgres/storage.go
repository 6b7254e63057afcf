package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/pkg/parser"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresBlockStore struct {
	Db           *gorm.DB
	Logger       *zap.Logger
	GlobalConfig *config.Config
}

func NewPostgresBlockStore(db *gorm.DB, l *zap.Logger, cfg *config.Config) *PostgresBlockStore {
	return &PostgresBlockStore{
		Db:           db,
		Logger:       l,
		GlobalConfig: cfg,
	}
}

// WithTx returns a store bound to the given transaction. The caller owns
// commit and rollback.
func (s *PostgresBlockStore) WithTx(tx *gorm.DB) storage.BlockStore {
	return &PostgresBlockStore{
		Db:           tx,
		Logger:       s.Logger,
		GlobalConfig: s.GlobalConfig,
	}
}

func (s *PostgresBlockStore) InsertBlockAtHeight(
	blockNumber uint64,
	hash string,
	parentHash string,
	blockTime uint64,
) (*storage.Block, error) {
	block := &storage.Block{
		Number:     blockNumber,
		Hash:       strings.ToLower(hash),
		ParentHash: strings.ToLower(parentHash),
		BlockTime:  time.Unix(int64(blockTime), 0),
	}

	res := s.Db.Model(&storage.Block{}).Clauses(clause.Returning{}).Create(&block)

	if res.Error != nil {
		return nil, fmt.Errorf("failed to insert block with number '%d': %w", blockNumber, res.Error)
	}
	return block, nil
}

func sanitizeNullBytes(data interface{}) interface{} {
	switch v := data.(type) {
	case string:
		// Remove null bytes from strings
		return strings.ReplaceAll(v, "\x00", "")
	case map[string]interface{}:
		sanitized := make(map[string]interface{}, len(v))
		for key, val := range v {
			sanitized[key] = sanitizeNullBytes(val)
		}
		return sanitized
	case []interface{}:
		sanitized := make([]interface{}, len(v))
		for i, val := range v {
			sanitized[i] = sanitizeNullBytes(val)
		}
		return sanitized
	default:
		// Return other types as-is (numbers, bools, nil, etc.)
		return v
	}
}

func (s *PostgresBlockStore) InsertTransactionLog(
	txHash string,
	transactionIndex uint64,
	blockNumber uint64,
	log *parser.DecodedLog,
	outputData map[string]interface{},
	ignoreOnConflict bool,
) (*storage.TransactionLog, error) {
	argsJson, err := json.Marshal(log.Arguments)
	if err != nil {
		s.Logger.Sugar().Errorw("Failed to marshal arguments", zap.Error(err))
	}

	sanitizedOutputData := sanitizeNullBytes(outputData)

	outputDataJson, err := json.Marshal(sanitizedOutputData)
	if err != nil {
		s.Logger.Sugar().Errorw("Failed to marshal output data", zap.Error(err))
	}

	txLog := &storage.TransactionLog{
		TransactionHash:  txHash,
		TransactionIndex: transactionIndex,
		BlockNumber:      blockNumber,
		Address:          strings.ToLower(log.Address),
		Arguments:        string(argsJson),
		EventName:        log.EventName,
		LogIndex:         log.LogIndex,
		OutputData:       string(outputDataJson),
	}
	clauses := []clause.Expression{clause.Returning{}}
	if ignoreOnConflict {
		clauses = append(clauses, clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_hash"}, {Name: "log_index"}},
			DoNothing: true,
		})
	}
	result := s.Db.Model(&storage.TransactionLog{}).Clauses(clauses...).Create(&txLog)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to insert transaction log: %w - %+v", result.Error, txLog)
	}
	return txLog, nil
}

func (s *PostgresBlockStore) GetLatestBlock() (*storage.Block, error) {
	block := &storage.Block{}

	query := `
	select
	 *
	from blocks
	order by number desc
	limit 1`

	result := s.Db.Model(&storage.Block{}).Raw(query).Scan(&block)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return block, nil
}

func (s *PostgresBlockStore) GetBlockByNumber(blockNumber uint64) (*storage.Block, error) {
	block := &storage.Block{}

	result := s.Db.Model(block).Where("number = ?", blockNumber).First(&block)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return block, nil
}

// ListTransactionLogsForBlock returns the stored logs for a block ordered the
// way they appeared on chain. Handlers depend on this ordering.
func (s *PostgresBlockStore) ListTransactionLogsForBlock(blockNumber uint64) ([]*storage.TransactionLog, error) {
	logs := make([]*storage.TransactionLog, 0)
	result := s.Db.Model(&storage.TransactionLog{}).
		Where("block_number = ?", blockNumber).
		Order("log_index asc").
		Find(&logs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list transaction logs for block '%d': %w", blockNumber, result.Error)
	}
	return logs, nil
}

func (s *PostgresBlockStore) DeleteCorruptedState(startBlockNumber uint64, endBlockNumber uint64) error {
	s.Logger.Sugar().Infow("Deleting corrupted state",
		zap.Uint64("startBlockNumber", startBlockNumber),
		zap.Uint64("endBlockNumber", endBlockNumber),
	)
	if endBlockNumber != 0 && endBlockNumber < startBlockNumber {
		s.Logger.Sugar().Errorw("Invalid block range",
			zap.Uint64("startBlockNumber", startBlockNumber),
			zap.Uint64("endBlockNumber", endBlockNumber),
		)
		return fmt.Errorf("invalid block range; endBlockNumber must be greater than or equal to startBlockNumber")
	}

	query := `
		delete from transaction_logs
		where block_number >= @startBlockNumber
	`
	if endBlockNumber > 0 {
		query += " and block_number <= @endBlockNumber"
	}
	res := s.Db.Exec(query,
		sql.Named("startBlockNumber", startBlockNumber),
		sql.Named("endBlockNumber", endBlockNumber),
	)
	if res.Error != nil {
		return fmt.Errorf("failed to delete corrupted state from table 'transaction_logs': %w", res.Error)
	}
	s.Logger.Sugar().Infow("Deleted records from transaction_logs",
		zap.Uint64("startBlockNumber", startBlockNumber),
		zap.Uint64("endBlockNumber", endBlockNumber),
		zap.Int64("rowsAffected", res.RowsAffected),
	)

	blocksQuery := `
		delete from blocks
		where number >= @startBlockNumber
	`
	if endBlockNumber > 0 {
		blocksQuery += " and number <= @endBlockNumber"
	}
	res = s.Db.Exec(blocksQuery,
		sql.Named("startBlockNumber", startBlockNumber),
		sql.Named("endBlockNumber", endBlockNumber),
	)
	if res.Error != nil {
		return fmt.Errorf("failed to delete corrupted state from table 'blocks': %w", res.Error)
	}
	return nil
}
