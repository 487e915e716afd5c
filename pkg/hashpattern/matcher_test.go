package hashpattern

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		idHex string
		bits  int
		want  bool
	}{
		{
			name:  "one trailing zero byte, 8 bits",
			idHex: "ab00",
			bits:  8,
			want:  true,
		},
		{
			name:  "partial nibble boundary, 3 bits",
			idHex: "ab08",
			bits:  3,
			want:  true,
		},
		{
			name:  "partial nibble boundary, 4 bits",
			idHex: "ab08",
			bits:  4,
			want:  false,
		},
		{
			name:  "low bit set",
			idHex: "ab01",
			bits:  1,
			want:  false,
		},
		{
			name:  "zero digest, max bits",
			idHex: "0000000000000000000000000000000000000000000000000000000000000000",
			bits:  64,
			want:  true,
		},
		{
			name:  "zero bits is rejected",
			idHex: "ab00",
			bits:  0,
			want:  false,
		},
		{
			name:  "negative bits are rejected",
			idHex: "ab00",
			bits:  -4,
			want:  false,
		},
		{
			name:  "bits above upper bound are rejected",
			idHex: "0000000000000000000000000000000000000000000000000000000000000000",
			bits:  65,
			want:  false,
		},
		{
			name:  "bits exceeding digest length are rejected",
			idHex: "00",
			bits:  12,
			want:  false,
		},
		{
			name:  "empty digest",
			idHex: "",
			bits:  4,
			want:  false,
		},
		{
			name:  "non hexadecimal digest",
			idHex: "zz00",
			bits:  4,
			want:  false,
		},
		{
			name:  "uppercase hex digest",
			idHex: "AB20",
			bits:  5,
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Matches(tt.idHex, tt.bits))
		})
	}
}

// TestMatchesPathAgreement checks that the integer mask path and the nibble
// walking path agree on every digest/bit combination, boundary cases
// included.
func TestMatchesPathAgreement(t *testing.T) {
	digests := make([]string, 0, 203)
	for i := 0; i < 200; i++ {
		buf := make([]byte, 32)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		// force interesting tails on a third of the samples
		if i%3 == 0 {
			buf[31] = 0
		}
		if i%9 == 0 {
			buf[30] = 0
		}
		digests = append(digests, hex.EncodeToString(buf))
	}
	digests = append(digests,
		"0000000000000000000000000000000000000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffff00000000",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffff80000000",
	)

	for _, digest := range digests {
		for bitCount := 1; bitCount <= 64; bitCount++ {
			small := matchesSmall(digest, bitCount)
			buffered := matchesBytes(digest, bitCount)
			require.Equalf(
				t, small, buffered,
				"paths disagree on digest %s with %d bits", digest, bitCount,
			)
			require.Equal(t, small, Matches(digest, bitCount))
		}
	}
}

func TestTrailingZeroBits(t *testing.T) {
	tests := []struct {
		idHex string
		want  int
	}{
		{idHex: "ab01", want: 0},
		{idHex: "ab02", want: 1},
		{idHex: "ab08", want: 3},
		{idHex: "ab00", want: 8},
		{idHex: "ab8000", want: 15},
		{idHex: "", want: 0},
		{idHex: "zz00", want: 0},
		{
			idHex: "0000000000000000000000000000000000000000000000000000000000000000",
			want:  MaxTrailingZeroBits,
		},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.idHex), func(t *testing.T) {
			require.Equal(t, tt.want, TrailingZeroBits(tt.idHex))
		})
	}
}

func TestMatchesIsConsistentWithTrailingZeroBits(t *testing.T) {
	for i := 0; i < 100; i++ {
		buf := make([]byte, 32)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		digest := hex.EncodeToString(buf)

		observed := TrailingZeroBits(digest)
		if observed > 0 {
			require.True(t, Matches(digest, observed))
		}
		if observed < MaxTrailingZeroBits {
			require.False(t, Matches(digest, observed+1))
		}
	}
}
