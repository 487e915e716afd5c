// Package mathutil holds the fixed-point amount arithmetic shared by the
// PSKT generator and the CLI. Amounts travel through the system as sompi
// (the smallest unit, 1e-8 of a coin); conversions to and from whole coins
// go through decimal.Decimal to avoid float drift.
package mathutil

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	// SompiPerCoin is the number of sompi in one whole coin.
	SompiPerCoin = uint64(math.Pow10(8))
	// SompiPerCoinDecimal is SompiPerCoin as decimal.Decimal.
	SompiPerCoinDecimal = decimal.NewFromInt(int64(math.Pow10(8)))

	basisPointDivisor = decimal.NewFromInt(10000)
)

func init() {
	decimal.DivisionPrecision = 8
}

// DecimalFromSompi lifts a sompi amount into a decimal.Decimal.
func DecimalFromSompi(sompi uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(sompi), 0)
}

// CoinFromSompi converts a sompi amount to whole coins.
func CoinFromSompi(sompi uint64) decimal.Decimal {
	return DecimalFromSompi(sompi).Div(SompiPerCoinDecimal)
}

// SompiFromCoin converts a whole-coin amount to sompi, truncating any
// precision beyond the eighth decimal place.
func SompiFromCoin(coin decimal.Decimal) uint64 {
	return coin.Mul(SompiPerCoinDecimal).BigInt().Uint64()
}

// PlusFee returns the given sompi amount with a fee added, the fee being
// expressed in basis points (ie. 0.25% = 25).
func PlusFee(amount, feeAsBasisPoint uint64) (withFee, calculatedFee uint64) {
	feeDecimal := calculateFee(amount, feeAsBasisPoint)
	withFeeDecimal := DecimalFromSompi(amount).Add(feeDecimal)
	return withFeeDecimal.BigInt().Uint64(), feeDecimal.BigInt().Uint64()
}

// LessFee returns the given sompi amount with a fee subtracted, the fee
// being expressed in basis points (ie. 0.25% = 25).
func LessFee(amount, feeAsBasisPoint uint64) (withFee, calculatedFee uint64) {
	feeDecimal := calculateFee(amount, feeAsBasisPoint)
	withFeeDecimal := DecimalFromSompi(amount).Sub(feeDecimal)
	return withFeeDecimal.BigInt().Uint64(), feeDecimal.BigInt().Uint64()
}

func calculateFee(amount, feeAsBasisPoint uint64) decimal.Decimal {
	return DecimalFromSompi(amount).
		Div(basisPointDivisor).
		Mul(DecimalFromSompi(feeAsBasisPoint))
}
