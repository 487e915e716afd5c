package bufferutil

import (
	"encoding/binary"
	"encoding/hex"
)

// ReverseBytes returns a copy of the given buffer with the byte order
// inverted. Transaction ids are displayed in reverse byte order.
func ReverseBytes(buf []byte) []byte {
	if len(buf) < 1 {
		return buf
	}
	reversed := make([]byte, 0, len(buf))
	for i := len(buf) - 1; i >= 0; i-- {
		reversed = append(reversed, buf[i])
	}
	return reversed
}

func TxIDFromBytes(buffer []byte) string {
	return hex.EncodeToString(ReverseBytes(buffer))
}

func TxIDToBytes(str string) ([]byte, error) {
	buffer, err := hex.DecodeString(str)
	if err != nil {
		return nil, err
	}
	return ReverseBytes(buffer), nil
}

func ValueFromBytes(buffer []byte) uint64 {
	return binary.LittleEndian.Uint64(buffer)
}

func ValueToBytes(val uint64) []byte {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, val)
	return buffer
}

// IsValidHex reports whether the given string is non-empty and contains
// only hexadecimal characters.
func IsValidHex(str string) bool {
	if len(str) <= 0 {
		return false
	}
	if len(str)%2 != 0 {
		str = "0" + str
	}
	_, err := hex.DecodeString(str)
	return err == nil
}
