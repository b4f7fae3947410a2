package eth

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// decimals of the chain's native asset
	NativeDecimals = 18
)

// AmountAfterFee adjusts a native-asset transfer so the wallet keeps enough
// balance to pay the fees for the whole queued batch. When the leftover after
// the requested transfer already covers the total fee, the requested amount
// passes through untouched. Otherwise the full estimated fee is subtracted
// from the requested amount. A result of zero or below means the wallet
// cannot self-fund the fees and the transfer must not be submitted.
func AmountAfterFee(requested, balance, totalFee decimal.Decimal) decimal.Decimal {
	if balance.Sub(requested).GreaterThanOrEqual(totalFee) {
		return requested
	}
	return requested.Sub(totalFee)
}

// TruncateAmount cuts an amount down to the asset's declared precision.
// Truncation never rounds up: the chain rejects amounts with more decimals
// than the token carries, and rounding up could exceed the balance.
func TruncateAmount(amount decimal.Decimal, decimals uint8) decimal.Decimal {
	return amount.Truncate(int32(decimals))
}

// GasFeeInETH converts a single transaction's gas cost to native units.
func GasFeeInETH(gasLimit uint64, gasPrice *big.Int) decimal.Decimal {
	return ToETH(CalcGasCost(gasLimit, gasPrice), NativeDecimals)
}

// TotalGasFeeInETH sums per-transaction gas costs over a batch, in native units.
func TotalGasFeeInETH(gasLimits []uint64, gasPrice *big.Int) decimal.Decimal {
	total := new(big.Int)
	for _, gasLimit := range gasLimits {
		total.Add(total, CalcGasCost(gasLimit, gasPrice))
	}
	return ToETH(total, NativeDecimals)
}
