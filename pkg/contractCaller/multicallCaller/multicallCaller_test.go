package multicallCaller

import (
	"math/big"
	"testing"

	"github.com/alchemix-finance/alchemist-indexer/internal/logger"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractAbi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testLogger(t *testing.T) *zap.Logger {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)
	return l
}

func Test_ParseYieldTokenParams(t *testing.T) {
	l := testLogger(t)

	t.Run("Should round trip through the abi encoding", func(t *testing.T) {
		a, err := contractAbi.AlchemistV2Abi(l)
		assert.Nil(t, err)

		packed, err := a.Methods["getYieldTokenParameters"].Outputs.Pack(yieldTokenParamsTuple{
			Decimals:             6,
			UnderlyingToken:      common.HexToAddress("0x1"),
			Adapter:              common.HexToAddress("0x2"),
			MaximumLoss:          big.NewInt(0),
			MaximumExpectedValue: big.NewInt(0),
			CreditUnlockRate:     big.NewInt(0),
			ActiveBalance:        big.NewInt(0),
			HarvestableBalance:   big.NewInt(0),
			TotalShares:          big.NewInt(12345),
			Enabled:              true,
		})
		assert.Nil(t, err)

		unpacked, err := a.Unpack("getYieldTokenParameters", packed)
		assert.Nil(t, err)

		params, err := parseYieldTokenParams(unpacked)
		assert.Nil(t, err)
		assert.Equal(t, uint8(6), params.Decimals)
		assert.Equal(t, 0, big.NewInt(12345).Cmp(params.TotalShares))
		assert.True(t, params.Enabled)
	})

	t.Run("Should return an error for a malformed result", func(t *testing.T) {
		_, err := parseYieldTokenParams([]interface{}{"bogus"})
		assert.NotNil(t, err)

		_, err = parseYieldTokenParams([]interface{}{})
		assert.NotNil(t, err)
	})
}

func Test_ParseUint256(t *testing.T) {
	t.Run("Should extract a uint256 result", func(t *testing.T) {
		value, err := parseUint256([]interface{}{big.NewInt(1000)}, "protocolFee")
		assert.Nil(t, err)
		assert.Equal(t, 0, big.NewInt(1000).Cmp(value))
	})

	t.Run("Should return an error for a malformed result", func(t *testing.T) {
		_, err := parseUint256([]interface{}{"1000"}, "protocolFee")
		assert.NotNil(t, err)

		_, err = parseUint256([]interface{}{}, "protocolFee")
		assert.NotNil(t, err)

		_, err = parseUint256([]interface{}{big.NewInt(1), big.NewInt(2)}, "protocolFee")
		assert.NotNil(t, err)
	})
}

func Test_ParsePositionShares(t *testing.T) {
	l := testLogger(t)

	t.Run("Should round trip through the abi encoding", func(t *testing.T) {
		a, err := contractAbi.AlchemistV2Abi(l)
		assert.Nil(t, err)

		packed, err := a.Methods["positions"].Outputs.Pack(big.NewInt(300), big.NewInt(7))
		assert.Nil(t, err)

		unpacked, err := a.Unpack("positions", packed)
		assert.Nil(t, err)

		shares, err := parsePositionShares(unpacked)
		assert.Nil(t, err)
		assert.Equal(t, 0, big.NewInt(300).Cmp(shares))
	})

	t.Run("Should return an error for a malformed result", func(t *testing.T) {
		_, err := parsePositionShares([]interface{}{big.NewInt(300)})
		assert.NotNil(t, err)

		_, err = parsePositionShares([]interface{}{"300", "7"})
		assert.NotNil(t, err)
	})
}

func Test_ParseAggregate3Results(t *testing.T) {
	l := testLogger(t)

	t.Run("Should round trip through the abi encoding", func(t *testing.T) {
		a, err := contractAbi.Multicall3Abi(l)
		assert.Nil(t, err)

		packed, err := a.Methods["aggregate3"].Outputs.Pack([]aggregate3Result{
			{Success: true, ReturnData: []byte{0x01}},
			{Success: true, ReturnData: []byte{0x02}},
		})
		assert.Nil(t, err)

		unpacked, err := a.Unpack("aggregate3", packed)
		assert.Nil(t, err)

		results, err := parseAggregate3Results(unpacked)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(results))
		assert.True(t, results[0].Success)
		assert.Equal(t, []byte{0x02}, results[1].ReturnData)
	})

	t.Run("Should return an error for a malformed result", func(t *testing.T) {
		_, err := parseAggregate3Results([]interface{}{"bogus"})
		assert.NotNil(t, err)

		_, err = parseAggregate3Results([]interface{}{})
		assert.NotNil(t, err)
	})
}
