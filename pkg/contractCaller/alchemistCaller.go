package contractCaller

import (
	"context"
	"math/big"
)

// YieldTokenParams mirrors the slice of the AlchemistV2 yield token
// parameter struct the indexer consumes.
type YieldTokenParams struct {
	Decimals    uint8
	TotalShares *big.Int
	Enabled     bool
}

// IAlchemistCaller defines the read-only AlchemistV2 contract operations the
// event handlers need. Every call is pinned to a block number so aggregate
// state is read exactly as it stood when the event was emitted.
type IAlchemistCaller interface {
	// GetYieldTokenParameters fetches the yield token parameter struct,
	// including total shares and decimals, at the given block.
	GetYieldTokenParameters(ctx context.Context, alchemist string, yieldToken string, blockNumber uint64) (*YieldTokenParams, error)

	// GetProtocolFee fetches the protocol fee at the given block, scaled by
	// 10000 (basis points).
	GetProtocolFee(ctx context.Context, alchemist string, blockNumber uint64) (*big.Int, error)

	// GetPositions fetches the share balance of every owner for the yield
	// token at the given block. A failure for any owner fails the whole
	// batch.
	GetPositions(ctx context.Context, alchemist string, yieldToken string, owners []string, blockNumber uint64) (map[string]*big.Int, error)
}
