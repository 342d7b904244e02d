// Package orderkey generates string keys that sort between, before, or after
// existing keys without rewriting them. Keys are compared as plain strings and
// drawn from a base-36 alphabet ordered the same way bytes compare, so any two
// distinct generated keys always leave room for another key between them.
package orderkey

import (
	"errors"
	"fmt"
	"strings"
)

// Digits is the key alphabet, listed in ascending byte order.
const Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	// ErrInvalidKey indicates a bound contains a character outside Digits.
	ErrInvalidKey = errors.New("orderkey: key contains characters outside the alphabet")
	// ErrInvalidRange indicates the lower bound does not sort before the upper bound.
	ErrInvalidRange = errors.New("orderkey: lower bound must sort before upper bound")
	// ErrNoKeyBetween indicates the upper bound is the lower bound followed by
	// exactly one zero digit, the only pair of distinct keys with nothing in
	// between.
	ErrNoKeyBetween = errors.New("orderkey: no key exists between bounds")
)

// Generator produces a key strictly between two optional bounds. An empty lo
// means "no lower bound" and an empty hi means "no upper bound".
type Generator interface {
	Between(lo, hi string) (string, error)
}

// Base36 is the default Generator.
type Base36 struct{}

// Between implements Generator.
func (Base36) Between(lo, hi string) (string, error) {
	return Between(lo, hi)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(lo, hi string) (string, error)

// Between implements Generator.
func (f GeneratorFunc) Between(lo, hi string) (string, error) {
	if f == nil {
		return Between(lo, hi)
	}
	return f(lo, hi)
}

// Between returns a key k with lo < k < hi. Generated keys never end with the
// zero digit unless hi is lo followed by two or more zeros, where the only
// keys in between are lo followed by fewer zeros.
func Between(lo, hi string) (string, error) {
	if err := validate(lo); err != nil {
		return "", fmt.Errorf("%w: lower bound %q", err, lo)
	}
	if err := validate(hi); err != nil {
		return "", fmt.Errorf("%w: upper bound %q", err, hi)
	}
	if hi != "" && lo >= hi {
		return "", fmt.Errorf("%w: %q >= %q", ErrInvalidRange, lo, hi)
	}
	key, err := midpoint(lo, hi, hi != "")
	if err != nil {
		return "", fmt.Errorf("%w: %q and %q", err, lo, hi)
	}
	return key, nil
}

// After returns a key that sorts after lo.
func After(lo string) (string, error) {
	return Between(lo, "")
}

// Before returns a key that sorts before hi.
func Before(hi string) (string, error) {
	return Between("", hi)
}

// Extend appends the middle digit to key. The result sorts after key for any
// input, including keys built outside this package.
func Extend(key string) string {
	return key + string(Digits[len(Digits)/2])
}

func midpoint(lo, hi string, bounded bool) (string, error) {
	if bounded {
		if hi == "" {
			return "", ErrNoKeyBetween
		}
		n := 0
		for n < len(hi) && digitAt(lo, n) == hi[n] {
			n++
		}
		if n == len(hi) {
			// hi is lo padded with zero digits; one fewer zero fits between
			if len(hi)-len(lo) > 1 {
				return hi[:len(hi)-1], nil
			}
			return "", ErrNoKeyBetween
		}
		if n > 0 {
			rest, err := midpoint(tail(lo, n), hi[n:], true)
			if err != nil {
				return "", err
			}
			return hi[:n] + rest, nil
		}
	}

	low := 0
	if lo != "" {
		low = strings.IndexByte(Digits, lo[0])
	}
	high := len(Digits)
	if bounded {
		high = strings.IndexByte(Digits, hi[0])
	}
	if high-low > 1 {
		return string(Digits[(low+high+1)/2]), nil
	}
	if bounded && len(hi) > 1 {
		return hi[:1], nil
	}
	// consecutive digits: keep lo's digit and open up the next position
	rest, err := midpoint(tail(lo, 1), "", false)
	if err != nil {
		return "", err
	}
	return string(Digits[low]) + rest, nil
}

func digitAt(key string, i int) byte {
	if i < len(key) {
		return key[i]
	}
	return Digits[0]
}

func tail(key string, n int) string {
	if n >= len(key) {
		return ""
	}
	return key[n:]
}

func validate(key string) error {
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(Digits, key[i]) < 0 {
			return ErrInvalidKey
		}
	}
	return nil
}
