package hashpattern

import (
	"math/bits"
	"strconv"
)

const (
	// MaxTrailingZeroBits is the highest pattern difficulty accepted by the
	// matcher. Anything above the digest bit length cannot be satisfied and
	// is rejected upfront.
	MaxTrailingZeroBits = 64

	// smallBitsThreshold selects the integer mask path for small bit counts.
	// Above the threshold the matcher walks the digest nibble by nibble.
	smallBitsThreshold = 16
)

// Matches reports whether the low-order trailingZeroBits bits of the given
// hex-encoded digest, read as a big-endian byte string, are all zero.
// Malformed input never panics: an empty or non-hexadecimal digest, a
// non-positive bit count or a bit count exceeding MaxTrailingZeroBits or the
// digest length all yield false.
func Matches(idHex string, trailingZeroBits int) bool {
	if trailingZeroBits <= 0 || trailingZeroBits > MaxTrailingZeroBits {
		return false
	}
	if len(idHex) <= 0 || !isHex(idHex) {
		return false
	}
	if trailingZeroBits > len(idHex)*4 {
		return false
	}

	if trailingZeroBits <= smallBitsThreshold {
		return matchesSmall(idHex, trailingZeroBits)
	}
	return matchesBytes(idHex, trailingZeroBits)
}

// TrailingZeroBits returns the number of trailing zero bits observed in the
// given hex-encoded digest, capped at MaxTrailingZeroBits. A malformed
// digest counts as zero.
func TrailingZeroBits(idHex string) int {
	if len(idHex) <= 0 || !isHex(idHex) {
		return 0
	}

	count := 0
	for i := len(idHex) - 1; i >= 0; i-- {
		nibble := hexNibble(idHex[i])
		if nibble == 0 {
			count += 4
			if count >= MaxTrailingZeroBits {
				return MaxTrailingZeroBits
			}
			continue
		}
		count += bits.TrailingZeros8(nibble)
		break
	}
	if count > MaxTrailingZeroBits {
		count = MaxTrailingZeroBits
	}
	return count
}

// matchesSmall parses the digest tail as an integer and tests it against a
// bit mask. Only used for bit counts whose tail fits a uint64.
func matchesSmall(idHex string, trailingZeroBits int) bool {
	tailLen := (trailingZeroBits + 3) / 4
	tail := idHex[len(idHex)-tailLen:]

	value, err := strconv.ParseUint(tail, 16, 64)
	if err != nil {
		return false
	}

	mask := uint64(1)<<uint(trailingZeroBits) - 1
	return value&mask == 0
}

// matchesBytes walks the digest from its tail one nibble at a time, checking
// full nibbles first and masking the remainder bits of the boundary nibble.
func matchesBytes(idHex string, trailingZeroBits int) bool {
	fullNibbles := trailingZeroBits / 4
	remainder := trailingZeroBits % 4

	pos := len(idHex) - 1
	for i := 0; i < fullNibbles; i++ {
		if hexNibble(idHex[pos]) != 0 {
			return false
		}
		pos--
	}

	if remainder > 0 {
		mask := uint8(1)<<uint(remainder) - 1
		if hexNibble(idHex[pos])&mask != 0 {
			return false
		}
	}
	return true
}

func isHex(str string) bool {
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func hexNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
