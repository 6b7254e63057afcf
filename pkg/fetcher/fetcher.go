// Package fetcher retrieves blocks and their transaction receipts from an
// Ethereum node for the indexing pipeline.
package fetcher

import (
	"context"

	"github.com/alchemix-finance/alchemist-indexer/pkg/clients/ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

type Fetcher struct {
	EthClient *ethereum.Client
	Logger    *zap.Logger
}

func NewFetcher(ethClient *ethereum.Client, l *zap.Logger) *Fetcher {
	return &Fetcher{
		EthClient: ethClient,
		Logger:    l,
	}
}

// FetchedBlock pairs a block with the receipts of every transaction in it.
type FetchedBlock struct {
	Block    *types.Block
	Receipts []*types.Receipt
}

// FetchBlock retrieves one block and all of its transaction receipts. The
// receipts carry the event logs the pipeline decodes and stores.
func (f *Fetcher) FetchBlock(ctx context.Context, blockNumber uint64) (*FetchedBlock, error) {
	block, err := f.EthClient.GetBlockByNumber(ctx, blockNumber)
	if err != nil {
		f.Logger.Sugar().Errorw("Failed to get block by number",
			zap.Error(err),
			zap.Uint64("blockNumber", blockNumber),
		)
		return nil, err
	}

	receipts, err := f.EthClient.GetBlockReceipts(ctx, block)
	if err != nil {
		f.Logger.Sugar().Errorw("Failed to fetch receipts for block",
			zap.Error(err),
			zap.Uint64("blockNumber", blockNumber),
		)
		return nil, err
	}

	f.Logger.Sugar().Debugw("Fetched block",
		zap.Uint64("blockNumber", blockNumber),
		zap.Int("transactions", len(block.Transactions())),
		zap.Int("receipts", len(receipts)),
	)

	return &FetchedBlock{
		Block:    block,
		Receipts: receipts,
	}, nil
}
