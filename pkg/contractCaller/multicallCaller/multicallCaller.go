// Package multicallCaller implements IAlchemistCaller against a live node.
// Single reads go through eth_call; per-owner position reads are batched
// through the canonical Multicall3 aggregate3 entrypoint.
package multicallCaller

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/metrics/metricsTypes"
	"github.com/alchemix-finance/alchemist-indexer/pkg/clients/ethereum"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractAbi"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractCaller"
	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type MulticallCaller struct {
	ethClient    *ethereum.Client
	logger       *zap.Logger
	globalConfig *config.Config
	metricsSink  metricsTypes.IMetricsClient

	alchemistAbi *abi.ABI
	multicallAbi *abi.ABI
}

// call3 matches the Multicall3.Call3 tuple layout for abi packing.
type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

func NewMulticallCaller(ethClient *ethereum.Client, cfg *config.Config, msink metricsTypes.IMetricsClient, l *zap.Logger) (*MulticallCaller, error) {
	alchemistAbi, err := contractAbi.AlchemistV2Abi(l)
	if err != nil {
		return nil, err
	}
	multicallAbi, err := contractAbi.Multicall3Abi(l)
	if err != nil {
		return nil, err
	}
	return &MulticallCaller{
		ethClient:    ethClient,
		logger:       l,
		globalConfig: cfg,
		metricsSink:  msink,
		alchemistAbi: alchemistAbi,
		multicallAbi: multicallAbi,
	}, nil
}

func (mc *MulticallCaller) GetYieldTokenParameters(ctx context.Context, alchemist string, yieldToken string, blockNumber uint64) (*contractCaller.YieldTokenParams, error) {
	callData, err := mc.alchemistAbi.Pack("getYieldTokenParameters", common.HexToAddress(yieldToken))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack getYieldTokenParameters")
	}

	result, err := mc.callAt(ctx, alchemist, callData, blockNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "getYieldTokenParameters failed for yield token '%s'", yieldToken)
	}

	unpacked, err := mc.alchemistAbi.Unpack("getYieldTokenParameters", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack getYieldTokenParameters")
	}

	return parseYieldTokenParams(unpacked)
}

// yieldTokenParamsTuple matches the struct type the abi package generates for
// the getYieldTokenParameters return tuple.
type yieldTokenParamsTuple = struct {
	Decimals             uint8          `json:"decimals"`
	UnderlyingToken      common.Address `json:"underlyingToken"`
	Adapter              common.Address `json:"adapter"`
	MaximumLoss          *big.Int       `json:"maximumLoss"`
	MaximumExpectedValue *big.Int       `json:"maximumExpectedValue"`
	CreditUnlockRate     *big.Int       `json:"creditUnlockRate"`
	ActiveBalance        *big.Int       `json:"activeBalance"`
	HarvestableBalance   *big.Int       `json:"harvestableBalance"`
	TotalShares          *big.Int       `json:"totalShares"`
	Enabled              bool           `json:"enabled"`
}

func parseYieldTokenParams(unpacked []interface{}) (*contractCaller.YieldTokenParams, error) {
	if len(unpacked) != 1 {
		return nil, errors.Errorf("getYieldTokenParameters returned %d values, expected 1", len(unpacked))
	}
	params, ok := unpacked[0].(yieldTokenParamsTuple)
	if !ok {
		return nil, errors.Errorf("getYieldTokenParameters returned unexpected type %T", unpacked[0])
	}

	return &contractCaller.YieldTokenParams{
		Decimals:    params.Decimals,
		TotalShares: params.TotalShares,
		Enabled:     params.Enabled,
	}, nil
}

func (mc *MulticallCaller) GetProtocolFee(ctx context.Context, alchemist string, blockNumber uint64) (*big.Int, error) {
	callData, err := mc.alchemistAbi.Pack("protocolFee")
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack protocolFee")
	}

	result, err := mc.callAt(ctx, alchemist, callData, blockNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "protocolFee failed for alchemist '%s'", alchemist)
	}

	unpacked, err := mc.alchemistAbi.Unpack("protocolFee", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack protocolFee")
	}
	return parseUint256(unpacked, "protocolFee")
}

func parseUint256(unpacked []interface{}, what string) (*big.Int, error) {
	if len(unpacked) != 1 {
		return nil, errors.Errorf("%s returned %d values, expected 1", what, len(unpacked))
	}
	value, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("%s returned unexpected type %T", what, unpacked[0])
	}
	return value, nil
}

func (mc *MulticallCaller) GetPositions(ctx context.Context, alchemist string, yieldToken string, owners []string, blockNumber uint64) (map[string]*big.Int, error) {
	positions := make(map[string]*big.Int, len(owners))
	if len(owners) == 0 {
		return positions, nil
	}

	if mc.metricsSink != nil {
		start := time.Now()
		defer func() {
			_ = mc.metricsSink.Timing(metricsTypes.Metric_Timing_AuxStateFetchDuration, time.Since(start), []metricsTypes.MetricsLabel{
				{Name: "alchemist", Value: strings.ToLower(alchemist)},
			})
		}()
	}

	alchemistAddress := common.HexToAddress(alchemist)
	yieldTokenAddress := common.HexToAddress(yieldToken)

	calls := make([]call3, 0, len(owners))
	for _, owner := range owners {
		callData, err := mc.alchemistAbi.Pack("positions", common.HexToAddress(owner), yieldTokenAddress)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to pack positions for owner '%s'", owner)
		}
		calls = append(calls, call3{
			Target:       alchemistAddress,
			AllowFailure: false,
			CallData:     callData,
		})
	}

	data, err := mc.multicallAbi.Pack("aggregate3", calls)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack aggregate3")
	}

	multicall3 := common.HexToAddress(mc.globalConfig.GetContractsMapForChain().Multicall3)
	msg := goethereum.CallMsg{
		To:   &multicall3,
		Data: data,
	}

	result, err := mc.ethClient.CallContract(ctx, msg, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, errors.Wrap(err, "aggregate3 call failed")
	}

	unpacked, err := mc.multicallAbi.Unpack("aggregate3", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack aggregate3 response")
	}

	results, err := parseAggregate3Results(unpacked)
	if err != nil {
		return nil, err
	}

	if len(results) != len(owners) {
		return nil, errors.Errorf("aggregate3 returned %d results for %d calls", len(results), len(owners))
	}

	for i, r := range results {
		owner := owners[i]
		// allowFailure is false, so the node should have reverted the whole
		// aggregate before a failed sub-call ever reaches this point.
		if !r.Success {
			return nil, errors.Errorf("positions call failed for owner '%s'", owner)
		}
		values, err := mc.alchemistAbi.Unpack("positions", r.ReturnData)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to unpack positions for owner '%s'", owner)
		}
		shares, err := parsePositionShares(values)
		if err != nil {
			return nil, errors.Wrapf(err, "owner '%s'", owner)
		}
		positions[strings.ToLower(owner)] = shares
	}

	mc.logger.Sugar().Debugw("Fetched positions",
		zap.String("alchemist", alchemist),
		zap.String("yieldToken", yieldToken),
		zap.Int("owners", len(owners)),
		zap.Uint64("blockNumber", blockNumber),
	)

	return positions, nil
}

// parsePositionShares extracts the shares value from an unpacked positions
// result (shares, lastAccruedWeight).
func parsePositionShares(unpacked []interface{}) (*big.Int, error) {
	if len(unpacked) != 2 {
		return nil, errors.Errorf("positions returned %d values, expected 2", len(unpacked))
	}
	shares, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("positions returned unexpected type %T", unpacked[0])
	}
	return shares, nil
}

// aggregate3Result matches the struct type the abi package generates for
// Multicall3.Result entries.
type aggregate3Result = struct {
	Success    bool   `json:"success"`
	ReturnData []byte `json:"returnData"`
}

func parseAggregate3Results(unpacked []interface{}) ([]aggregate3Result, error) {
	if len(unpacked) != 1 {
		return nil, errors.Errorf("aggregate3 returned %d values, expected 1", len(unpacked))
	}
	results, ok := unpacked[0].([]aggregate3Result)
	if !ok {
		return nil, errors.Errorf("aggregate3 returned unexpected type %T", unpacked[0])
	}
	return results, nil
}

func (mc *MulticallCaller) callAt(ctx context.Context, target string, callData []byte, blockNumber uint64) ([]byte, error) {
	to := common.HexToAddress(target)
	msg := goethereum.CallMsg{
		To:   &to,
		Data: callData,
	}
	return mc.ethClient.CallContract(ctx, msg, new(big.Int).SetUint64(blockNumber))
}
