// Package shareCalculator holds the pro-rata distribution math for harvest
// and donation events. It is pure computation; callers supply the on-chain
// quantities read at the event's block.
package shareCalculator

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrZeroTotalShares is returned when the yield token has no outstanding
// shares at the event's block. Callers skip share attribution in that case;
// dividing through would produce NaN or Inf.
var ErrZeroTotalShares = errors.New("yield token has zero total shares")

// protocolFeeScale is the denominator of the AlchemistV2 protocol fee
// (basis points).
const protocolFeeScale = 10000.0

// debtTokenDecimals is fixed for every Alchemix synthetic.
const debtTokenDecimals = 18

// HarvestEarnings computes one depositor's share of a harvest, denominated
// in whole underlying tokens:
//
//	totalHarvested * (1 - protocolFee/10000) * shares / totalShares / 10^decimals
func HarvestEarnings(totalHarvested *big.Int, protocolFee *big.Int, shares *big.Int, totalShares *big.Int, decimals uint8) (float64, error) {
	if totalShares == nil || totalShares.Sign() == 0 {
		return 0, ErrZeroTotalShares
	}

	harvested := toFloat(totalHarvested)
	feeFraction := toFloat(protocolFee) / protocolFeeScale
	netHarvested := harvested * (1 - feeFraction)

	return netHarvested * toFloat(shares) / toFloat(totalShares) / math.Pow(10, float64(decimals)), nil
}

// DonationShare computes one depositor's share of a donation, denominated in
// whole debt tokens:
//
//	debtTokensBurned * shares / totalShares / 10^18
func DonationShare(debtTokensBurned *big.Int, shares *big.Int, totalShares *big.Int) (float64, error) {
	if totalShares == nil || totalShares.Sign() == 0 {
		return 0, ErrZeroTotalShares
	}

	burned := toFloat(debtTokensBurned)

	return burned * toFloat(shares) / toFloat(totalShares) / math.Pow(10, debtTokenDecimals), nil
}

// toFloat downcasts an on-chain integer quantity to float64. Values beyond
// float64 precision lose their low-order digits, which is acceptable for the
// derived earnings columns.
func toFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, 0).InexactFloat64()
}
