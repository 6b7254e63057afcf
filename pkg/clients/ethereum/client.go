// Package ethereum wraps the go-ethereum RPC client with the small surface
// the indexer needs: blocks, receipts, logs and block-pinned contract calls.
package ethereum

import (
	"context"
	"math/big"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type EthereumClientConfig struct {
	BaseUrl string
	// UseGetBlockReceipts selects eth_getBlockReceipts over per-transaction
	// receipt fetches. Requires a node that supports the method.
	UseGetBlockReceipts bool
}

type Client struct {
	client *ethclient.Client
	config *EthereumClientConfig
	logger *zap.Logger
}

func NewClient(ctx context.Context, cfg *EthereumClientConfig, l *zap.Logger) (*Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.BaseUrl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial ethereum node")
	}
	return &Client{
		client: client,
		config: cfg,
		logger: l,
	}, nil
}

func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	blockNumber, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest block number")
	}
	return blockNumber, nil
}

func (c *Client) GetBlockByNumber(ctx context.Context, blockNumber uint64) (*types.Block, error) {
	block, err := c.client.BlockByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get block '%d'", blockNumber)
	}
	return block, nil
}

// GetBlockReceipts returns the receipts for every transaction in the block.
func (c *Client) GetBlockReceipts(ctx context.Context, block *types.Block) ([]*types.Receipt, error) {
	if c.config.UseGetBlockReceipts {
		blockNumber := rpc.BlockNumber(block.NumberU64())
		receipts, err := c.client.BlockReceipts(ctx, rpc.BlockNumberOrHash{BlockNumber: &blockNumber})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get receipts for block '%d'", block.NumberU64())
		}
		return receipts, nil
	}

	receipts := make([]*types.Receipt, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		receipt, err := c.client.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get receipt for transaction '%s'", tx.Hash().Hex())
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// CallContract executes a read-only contract call pinned to blockNumber.
// A nil blockNumber calls against the latest state.
func (c *Client) CallContract(ctx context.Context, msg goethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	result, err := c.client.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, errors.Wrap(err, "contract call failed")
	}
	return result, nil
}
