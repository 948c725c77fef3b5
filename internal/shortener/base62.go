package shortener

import (
	"errors"
	"math"
	"strings"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	base     = uint64(len(alphabet))
)

var (
	ErrInvalidCode  = errors.New("invalid character in short code")
	ErrCodeOverflow = errors.New("short code exceeds counter range")
)

// Encode renders n in base62 without padding.
func Encode(n uint64) string {
	if n == 0 {
		return alphabet[:1]
	}

	var buf [11]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n%base]
		n /= base
	}

	return string(buf[i:])
}

// Decode is the inverse of Encode.
func Decode(s string) (uint64, error) {
	if s == "" {
		return 0, ErrInvalidCode
	}

	var n uint64

	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(alphabet, s[i])
		if idx < 0 {
			return 0, ErrInvalidCode
		}

		if n > (math.MaxUint64-uint64(idx))/base {
			return 0, ErrCodeOverflow
		}

		n = n*base + uint64(idx)
	}

	return n, nil
}
