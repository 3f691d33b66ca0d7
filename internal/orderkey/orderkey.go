// Package orderkey allocates fractional-index keys whose lexicographic order
// is the display order of siblings.
//
// A key is read as a base-62 fraction 0.d1d2d3... over Alphabet. Keys
// produced here never end in the zero symbol, which keeps string comparison
// and numeric comparison in agreement.
package orderkey

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Alphabet lists the key symbols in ascending order.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	base     = len(Alphabet)
	midDigit = base / 2 // 'V'
)

var (
	ErrInvalidKey        = errors.New("invalid order key")
	ErrInvalidBounds     = errors.New("order key bounds out of order")
	ErrKeySpaceExhausted = errors.New("no order key fits between bounds")
)

// Validate reports whether key is a non-empty string over Alphabet.
func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for i := 0; i < len(key); i++ {
		if ordinal(key[i]) < 0 {
			return fmt.Errorf("%w: %q has symbol %q", ErrInvalidKey, key, key[i])
		}
	}
	return nil
}

// GenerateKey returns a key strictly between prev and next. An empty bound
// means unbounded on that side.
func GenerateKey(prev, next string) (string, error) {
	if prev != "" {
		if err := Validate(prev); err != nil {
			return "", err
		}
	}
	if next != "" {
		if err := Validate(next); err != nil {
			return "", err
		}
	}

	switch {
	case prev == "" && next == "":
		return string(Alphabet[midDigit]), nil
	case prev == "":
		return decrement(next)
	case next == "":
		return increment(prev), nil
	}

	if prev >= next {
		return "", fmt.Errorf("%w: %q >= %q", ErrInvalidBounds, prev, next)
	}
	return midpoint(prev, next)
}

// GenerateKeys returns count strictly increasing keys between prev and next.
func GenerateKeys(count int, prev, next string) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	keys := make([]string, 0, count)
	lower := prev
	for range count {
		key, err := GenerateKey(lower, next)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		lower = key
	}
	return keys, nil
}

// increment adds one unit at the least-significant symbol of prev, carrying
// leftward. When every symbol is already at its maximum the key is extended
// instead, since a longer string with the same prefix sorts after it.
func increment(prev string) string {
	ds := digits(prev)
	for i := len(ds) - 1; i >= 0; i-- {
		if ds[i] < base-1 {
			ds[i]++
			return encode(ds[:i+1])
		}
		ds[i] = 0
	}
	return prev + string(Alphabet[midDigit])
}

// decrement subtracts one unit at the least-significant symbol of next,
// borrowing leftward. A result of zero would be the floor of the key space,
// so a midpoint symbol is appended to stay above it.
func decrement(next string) (string, error) {
	ds := digits(next)
	if isZero(ds) {
		return "", fmt.Errorf("%w: nothing sorts before %q", ErrKeySpaceExhausted, next)
	}

	for i := len(ds) - 1; i >= 0; i-- {
		if ds[i] > 0 {
			ds[i]--
			break
		}
		ds[i] = base - 1
	}

	if isZero(ds) {
		return encode(ds) + string(Alphabet[midDigit]), nil
	}
	return encode(trimZeros(ds)), nil
}

// midpoint averages two keys digit by digit.
func midpoint(prev, next string) (string, error) {
	width := max(len(prev), len(next)) + 1
	a := pad(digits(prev), width)
	b := pad(digits(next), width)

	sum := make([]int, width)
	carry := 0
	for i := width - 1; i >= 0; i-- {
		s := a[i] + b[i] + carry
		sum[i] = s % base
		carry = s / base
	}

	mid := make([]int, width)
	rem := carry
	for i := 0; i < width; i++ {
		v := rem*base + sum[i]
		mid[i] = v / 2
		rem = v % 2
	}

	key := encode(trimZeros(mid))
	if key > prev && key < next {
		return key, nil
	}

	// Precision exhausted: bias toward prev with one more symbol.
	if key = prev + string(Alphabet[midDigit]); key < next {
		return key, nil
	}
	return "", fmt.Errorf("%w: %q and %q", ErrKeySpaceExhausted, prev, next)
}

// Item pairs a node id with its current key for Rebalance.
type Item struct {
	ID  string
	Key string
}

// Rebalance assigns evenly spaced fixed-width keys to items, keeping their
// key order. Items with equal keys keep their relative input order.
func Rebalance(items []Item) map[string]string {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		return strings.Compare(a.Key, b.Key)
	})

	n := len(sorted)
	width, space := 2, base*base
	for space/(n+1) < 1 {
		width++
		space *= base
	}
	step := space / (n + 1)

	keys := make(map[string]string, n)
	for i, item := range sorted {
		keys[item.ID] = encodeFixed((i+1)*step, width)
	}
	return keys
}

func ordinal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 36
	default:
		return -1
	}
}

// digits converts a validated key into symbol ordinals.
func digits(key string) []int {
	ds := make([]int, len(key))
	for i := 0; i < len(key); i++ {
		ds[i] = ordinal(key[i])
	}
	return ds
}

func encode(ds []int) string {
	var b strings.Builder
	b.Grow(len(ds))
	for _, d := range ds {
		b.WriteByte(Alphabet[d])
	}
	return b.String()
}

func encodeFixed(v, width int) string {
	ds := make([]int, width)
	for i := width - 1; i >= 0; i-- {
		ds[i] = v % base
		v /= base
	}
	return encode(ds)
}

func pad(ds []int, width int) []int {
	for len(ds) < width {
		ds = append(ds, 0)
	}
	return ds
}

func trimZeros(ds []int) []int {
	end := len(ds)
	for end > 0 && ds[end-1] == 0 {
		end--
	}
	return ds[:end]
}

func isZero(ds []int) bool {
	for _, d := range ds {
		if d != 0 {
			return false
		}
	}
	return true
}
