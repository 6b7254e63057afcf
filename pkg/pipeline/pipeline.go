// Package pipeline drives the indexer: it fetches blocks in order, decodes
// and persists the interesting logs, and hands each stored log to the state
// models.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/metrics/metricsTypes"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	"github.com/alchemix-finance/alchemist-indexer/pkg/fetcher"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres/helpers"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"github.com/alchemix-finance/alchemist-indexer/pkg/transactionLogParser"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newBlockPollInterval is how long the pipeline waits at the chain head
// before asking for new blocks again.
const newBlockPollInterval = 5 * time.Second

type Pipeline struct {
	Fetcher      *fetcher.Fetcher
	LogParser    *transactionLogParser.TransactionLogParser
	BlockStore   storage.BlockStore
	stateManager *stateManager.AlchemistStateManager
	globalConfig *config.Config
	metricsSink  metricsTypes.IMetricsClient
	DB           *gorm.DB
	Logger       *zap.Logger
}

func NewPipeline(
	f *fetcher.Fetcher,
	tlp *transactionLogParser.TransactionLogParser,
	bs storage.BlockStore,
	asm *stateManager.AlchemistStateManager,
	gc *config.Config,
	ms metricsTypes.IMetricsClient,
	grm *gorm.DB,
	l *zap.Logger,
) *Pipeline {
	return &Pipeline{
		Fetcher:      f,
		LogParser:    tlp,
		BlockStore:   bs,
		stateManager: asm,
		globalConfig: gc,
		metricsSink:  ms,
		DB:           grm,
		Logger:       l,
	}
}

// RunForFetchedBlock indexes one already-fetched block. The block row, the
// decoded logs and every state transition commit in one transaction, so a
// block is either fully indexed or absent. A resumed process can therefore
// always pick up at the latest stored block plus one without replaying
// non-idempotent handlers.
func (p *Pipeline) RunForFetchedBlock(ctx context.Context, block *fetcher.FetchedBlock) error {
	blockNumber := block.Block.NumberU64()

	hasError := false
	startedAt := time.Now()
	defer func() {
		if p.metricsSink != nil {
			_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_BlockProcessDuration, time.Since(startedAt), []metricsTypes.MetricsLabel{
				{Name: "hasError", Value: strconv.FormatBool(hasError)},
			})
		}
	}()

	logCount := 0
	_, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (interface{}, error) {
		count, err := p.indexBlock(ctx, block, tx)
		logCount = count
		return nil, err
	}, p.DB, nil)
	if err != nil {
		hasError = true
		return err
	}

	if p.metricsSink != nil {
		_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_BlockProcessed, nil, 1)
		_ = p.metricsSink.Gauge(metricsTypes.Metric_Gauge_CurrentBlockHeight, float64(blockNumber), nil)
	}

	p.Logger.Sugar().Debugw("Processed block",
		zap.Uint64("blockNumber", blockNumber),
		zap.Int("logs", logCount),
		zap.Duration("duration", time.Since(startedAt)),
	)

	return nil
}

// indexBlock persists the block and its logs and applies every state
// transition, all against the given transaction. It returns the number of
// stored logs.
func (p *Pipeline) indexBlock(ctx context.Context, block *fetcher.FetchedBlock, tx *gorm.DB) (int, error) {
	blockNumber := block.Block.NumberU64()
	store := p.BlockStore.WithTx(tx)

	_, err := store.InsertBlockAtHeight(
		blockNumber,
		block.Block.Hash().Hex(),
		block.Block.ParentHash().Hex(),
		block.Block.Time(),
	)
	if err != nil {
		p.Logger.Sugar().Errorw("Failed to insert block",
			zap.Error(err),
			zap.Uint64("blockNumber", blockNumber),
		)
		return 0, err
	}

	for _, receipt := range block.Receipts {
		decodedLogs, err := p.LogParser.ParseReceiptLogs(receipt)
		if err != nil {
			p.Logger.Sugar().Errorw("Failed to parse receipt logs",
				zap.Error(err),
				zap.String("transactionHash", receipt.TxHash.Hex()),
				zap.Uint64("blockNumber", blockNumber),
			)
			return 0, err
		}

		for _, decodedLog := range decodedLogs {
			_, err := store.InsertTransactionLog(
				receipt.TxHash.Hex(),
				uint64(receipt.TransactionIndex),
				blockNumber,
				decodedLog,
				decodedLog.OutputData,
				false,
			)
			if err != nil {
				p.Logger.Sugar().Errorw("Failed to insert transaction log",
					zap.Error(err),
					zap.String("transactionHash", receipt.TxHash.Hex()),
					zap.Uint64("logIndex", decodedLog.LogIndex),
				)
				return 0, err
			}
		}
	}

	storedLogs, err := store.ListTransactionLogsForBlock(blockNumber)
	if err != nil {
		return 0, err
	}

	for _, storedLog := range storedLogs {
		if err := p.stateManager.HandleLogStateChange(ctx, storedLog, tx); err != nil {
			return 0, err
		}
	}
	return len(storedLogs), nil
}

// RunForBlock fetches and indexes a single block.
func (p *Pipeline) RunForBlock(ctx context.Context, blockNumber uint64) error {
	fetchedBlock, err := p.Fetcher.FetchBlock(ctx, blockNumber)
	if err != nil {
		return err
	}
	return p.RunForFetchedBlock(ctx, fetchedBlock)
}

// RunForBlockRange indexes blocks sequentially from start through end
// inclusive. Blocks are never processed out of order; a failure stops the
// range at the failing block.
func (p *Pipeline) RunForBlockRange(ctx context.Context, startBlock uint64, endBlock uint64) error {
	for blockNumber := startBlock; blockNumber <= endBlock; blockNumber++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.RunForBlock(ctx, blockNumber); err != nil {
			return err
		}
	}
	return nil
}

// getStartBlock picks where indexing resumes: one past the last stored block,
// or the configured start block, or the chain's Alchemist genesis block,
// whichever applies.
func (p *Pipeline) getStartBlock() (uint64, error) {
	latest, err := p.BlockStore.GetLatestBlock()
	if err != nil {
		return 0, err
	}
	if latest != nil {
		return latest.Number + 1, nil
	}
	if p.globalConfig.IndexerConfig.StartBlock > 0 {
		return p.globalConfig.IndexerConfig.StartBlock, nil
	}
	return p.globalConfig.GetGenesisBlockNumber(), nil
}

// Run indexes from the resume point to the chain head, then follows the head
// until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	startBlock, err := p.getStartBlock()
	if err != nil {
		return err
	}

	p.Logger.Sugar().Infow("Starting pipeline",
		zap.Uint64("startBlock", startBlock),
		zap.String("chain", string(p.globalConfig.Chain)),
	)

	nextBlock := startBlock
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		latestBlock, err := p.Fetcher.EthClient.GetLatestBlockNumber(ctx)
		if err != nil {
			p.Logger.Sugar().Errorw("Failed to get latest block number", zap.Error(err))
			return err
		}

		if nextBlock > latestBlock {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(newBlockPollInterval):
			}
			continue
		}

		if err := p.RunForBlockRange(ctx, nextBlock, latestBlock); err != nil {
			return err
		}
		nextBlock = latestBlock + 1
	}
}
