package orderkey_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmtree/internal/orderkey"
)

func TestGenerateKey_Bounds(t *testing.T) {
	tests := []struct {
		name       string
		prev, next string
		want       string
	}{
		{name: "no bounds", prev: "", next: "", want: "V"},
		{name: "between siblings", prev: "a1", next: "a2", want: "a1V"},
		{name: "append increments last symbol", prev: "a1", next: "", want: "a2"},
		{name: "append carries", prev: "az", next: "", want: "b"},
		{name: "append extends at maximum", prev: "zz", next: "", want: "zzV"},
		{name: "prepend decrements last symbol", prev: "", next: "a2", want: "a1"},
		{name: "prepend borrows", prev: "", next: "b0", want: "az"},
		{name: "prepend trims trailing zero", prev: "", next: "b1", want: "b"},
		{name: "prepend stays above floor", prev: "", next: "1", want: "0V"},
		{name: "prepend keeps leading zeros", prev: "", next: "01", want: "00V"},
		{name: "adjacent single symbols", prev: "a", next: "b", want: "aV"},
		{name: "wide gap", prev: "0", next: "z", want: "UV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderkey.GenerateKey(tt.prev, tt.next)
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
			if tt.prev != "" {
				assert.Assert(t, got > tt.prev, "%q should sort after %q", got, tt.prev)
			}
			if tt.next != "" {
				assert.Assert(t, got < tt.next, "%q should sort before %q", got, tt.next)
			}
		})
	}
}

func TestGenerateKey_Errors(t *testing.T) {
	tests := []struct {
		name       string
		prev, next string
		want       error
	}{
		{name: "reversed bounds", prev: "a2", next: "a1", want: orderkey.ErrInvalidBounds},
		{name: "equal bounds", prev: "a1", next: "a1", want: orderkey.ErrInvalidBounds},
		{name: "bad symbol", prev: "a-", next: "", want: orderkey.ErrInvalidKey},
		{name: "nothing below zero", prev: "", next: "00", want: orderkey.ErrKeySpaceExhausted},
		{name: "nothing between prefix and zero", prev: "b", next: "b0", want: orderkey.ErrKeySpaceExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orderkey.GenerateKey(tt.prev, tt.next)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func randomKey(r *rand.Rand) string {
	var b strings.Builder
	n := 1 + r.IntN(6)
	for range n {
		b.WriteByte(orderkey.Alphabet[r.IntN(len(orderkey.Alphabet))])
	}
	return strings.TrimRight(b.String(), "0")
}

func TestGenerateKey_AlwaysBetween(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 5000; i++ {
		prev, next := randomKey(r), randomKey(r)
		if prev == "" || next == "" || prev == next {
			continue
		}
		if prev > next {
			prev, next = next, prev
		}

		got, err := orderkey.GenerateKey(prev, next)
		assert.NilError(t, err, "prev=%q next=%q", prev, next)
		assert.Assert(t, prev < got && got < next, "%q not in (%q, %q)", got, prev, next)
		assert.Assert(t, !strings.HasSuffix(got, "0"), "%q ends in zero", got)
	}
}

func TestGenerateKey_RepeatedInsertion(t *testing.T) {
	t.Run("always prepend", func(t *testing.T) {
		next := ""
		for i := 0; i < 1000; i++ {
			key, err := orderkey.GenerateKey("", next)
			assert.NilError(t, err, "iteration %d", i)
			if next != "" {
				assert.Assert(t, key < next)
			}
			next = key
		}
	})

	t.Run("always append", func(t *testing.T) {
		prev := ""
		for i := 0; i < 1000; i++ {
			key, err := orderkey.GenerateKey(prev, "")
			assert.NilError(t, err, "iteration %d", i)
			assert.Assert(t, key > prev)
			prev = key
		}
	})

	t.Run("always insert after the same key", func(t *testing.T) {
		prev, next := "a", "b"
		for i := 0; i < 200; i++ {
			key, err := orderkey.GenerateKey(prev, next)
			assert.NilError(t, err, "iteration %d", i)
			assert.Assert(t, prev < key && key < next)
			next = key
		}
	})
}

func TestGenerateKeys(t *testing.T) {
	keys, err := orderkey.GenerateKeys(50, "a", "b")
	assert.NilError(t, err)
	assert.Assert(t, is.Len(keys, 50))

	prev := "a"
	for _, k := range keys {
		assert.Assert(t, k > prev, "%q should follow %q", k, prev)
		assert.Assert(t, k < "b")
		prev = k
	}

	none, err := orderkey.GenerateKeys(0, "", "")
	assert.NilError(t, err)
	assert.Assert(t, is.Len(none, 0))

	_, err = orderkey.GenerateKeys(3, "b", "a")
	assert.ErrorIs(t, err, orderkey.ErrInvalidBounds)
}

func TestRebalance(t *testing.T) {
	items := []orderkey.Item{
		{ID: "c", Key: "a1VVVVVVVVVV"},
		{ID: "a", Key: "0V"},
		{ID: "b", Key: "a1"},
		{ID: "d", Key: "z"},
	}

	keys := orderkey.Rebalance(items)
	assert.Assert(t, is.Len(keys, 4))

	order := []string{"a", "b", "c", "d"}
	for i := 1; i < len(order); i++ {
		assert.Assert(t, keys[order[i-1]] < keys[order[i]],
			"%s=%q should sort before %s=%q", order[i-1], keys[order[i-1]], order[i], keys[order[i]])
	}
	for _, k := range keys {
		assert.Equal(t, len(k), 2)
		assert.NilError(t, orderkey.Validate(k))
	}
}

func TestRebalance_DuplicateKeysKeepInputOrder(t *testing.T) {
	keys := orderkey.Rebalance([]orderkey.Item{
		{ID: "x", Key: "a"},
		{ID: "y", Key: "a"},
		{ID: "z", Key: "a"},
	})

	assert.Assert(t, keys["x"] < keys["y"])
	assert.Assert(t, keys["y"] < keys["z"])
}

func TestRebalance_ExtendsWidth(t *testing.T) {
	items := make([]orderkey.Item, 5000)
	for i := range items {
		items[i] = orderkey.Item{ID: string(rune('a'+i%26)) + strings.Repeat("x", i/26), Key: "V"}
	}

	keys := orderkey.Rebalance(items)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		assert.Equal(t, len(k), 3)
		assert.Assert(t, !seen[k], "duplicate key %q", k)
		seen[k] = true
	}
}

func TestValidate(t *testing.T) {
	assert.NilError(t, orderkey.Validate("a1V"))
	assert.ErrorIs(t, orderkey.Validate(""), orderkey.ErrInvalidKey)
	assert.ErrorIs(t, orderkey.Validate("a b"), orderkey.ErrInvalidKey)
}
