package mathutil_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vanitydag/vanityd/pkg/mathutil"
)

func TestCoinSompiConversion(t *testing.T) {
	tests := []struct {
		sompi uint64
		coin  string
	}{
		{0, "0"},
		{1, "0.00000001"},
		{100000000, "1"},
		{150000000, "1.5"},
		{2100000000000000, "21000000"},
	}

	for _, tt := range tests {
		coin := mathutil.CoinFromSompi(tt.sompi)
		require.Equal(t, tt.coin, coin.String())
		require.Equal(t, tt.sompi, mathutil.SompiFromCoin(coin))
	}
}

func TestSompiFromCoinTruncatesExcessPrecision(t *testing.T) {
	coin, err := decimal.NewFromString("0.000000015")
	require.NoError(t, err)
	require.Equal(t, uint64(1), mathutil.SompiFromCoin(coin))
}

func TestPlusFee(t *testing.T) {
	withFee, fee := mathutil.PlusFee(100000000, 25)
	require.Equal(t, uint64(250000), fee)
	require.Equal(t, uint64(100250000), withFee)
}

func TestLessFee(t *testing.T) {
	withFee, fee := mathutil.LessFee(100000000, 25)
	require.Equal(t, uint64(250000), fee)
	require.Equal(t, uint64(99750000), withFee)
}
