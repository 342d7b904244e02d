package orderkey

import (
	"errors"
	"strings"
	"testing"
)

func TestBetweenCases(t *testing.T) {
	cases := []struct {
		name string
		lo   string
		hi   string
		want string
	}{
		{name: "unbounded", lo: "", hi: "", want: "i"},
		{name: "append after a0", lo: "a0", hi: "", want: "n"},
		{name: "prepend before a0", lo: "", hi: "a0", want: "5"},
		{name: "consecutive digits", lo: "a0", hi: "a1", want: "a0i"},
		{name: "wide gap", lo: "a", hi: "c", want: "b"},
		{name: "upper prefix digit", lo: "a5", hi: "b3", want: "b"},
		{name: "padded lower bound", lo: "a", hi: "a05", want: "a03"},
		{name: "append after last digit", lo: "z", hi: "", want: "zi"},
		{name: "upper is lower plus two zeros", lo: "a1", hi: "a100", want: "a10"},
		{name: "upper is lower plus three zeros", lo: "a", hi: "a000", want: "a00"},
		{name: "unbounded below double zero", lo: "", hi: "00", want: "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Between(tc.lo, tc.hi)
			if err != nil {
				t.Fatalf("Between(%q, %q): %v", tc.lo, tc.hi, err)
			}
			if got != tc.want {
				t.Fatalf("Between(%q, %q) = %q, want %q", tc.lo, tc.hi, got, tc.want)
			}
			assertOrdered(t, tc.lo, got, tc.hi)
		})
	}
}

func TestAppendNeverRenumbers(t *testing.T) {
	keys := []string{}
	last := ""
	for i := 0; i < 500; i++ {
		next, err := After(last)
		if err != nil {
			t.Fatalf("After(%q): %v", last, err)
		}
		if next <= last {
			t.Fatalf("expected %q > %q", next, last)
		}
		keys = append(keys, next)
		last = next
	}
	if len(keys) != 500 {
		t.Fatalf("expected 500 keys, got %d", len(keys))
	}
}

func TestPrependNeverExhausts(t *testing.T) {
	first := ""
	for i := 0; i < 200; i++ {
		prev, err := Before(first)
		if err != nil {
			t.Fatalf("Before(%q): %v", first, err)
		}
		if first != "" && prev >= first {
			t.Fatalf("expected %q < %q", prev, first)
		}
		first = prev
	}
}

func TestRepeatedBisection(t *testing.T) {
	lo, hi := "a0", "a1"
	for i := 0; i < 200; i++ {
		mid, err := Between(lo, hi)
		if err != nil {
			t.Fatalf("iteration %d Between(%q, %q): %v", i, lo, hi, err)
		}
		assertOrdered(t, lo, mid, hi)
		if strings.HasSuffix(mid, "0") {
			t.Fatalf("generated key %q ends with zero digit", mid)
		}
		if i%2 == 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
}

func TestBetweenErrors(t *testing.T) {
	cases := []struct {
		name string
		lo   string
		hi   string
		want error
	}{
		{name: "uppercase lower", lo: "A0", hi: "", want: ErrInvalidKey},
		{name: "symbol upper", lo: "", hi: "a-", want: ErrInvalidKey},
		{name: "equal bounds", lo: "b", hi: "b", want: ErrInvalidRange},
		{name: "reversed bounds", lo: "c", hi: "b", want: ErrInvalidRange},
		{name: "zero suffix gap", lo: "a", hi: "a0", want: ErrNoKeyBetween},
		{name: "empty and zero", lo: "", hi: "0", want: ErrNoKeyBetween},
		{name: "single zero after digit", lo: "a1", hi: "a10", want: ErrNoKeyBetween},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Between(tc.lo, tc.hi)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Between(%q, %q) error = %v, want %v", tc.lo, tc.hi, err, tc.want)
			}
		})
	}
}

func TestExtendSortsAfterAnyKey(t *testing.T) {
	for _, key := range []string{"", "a0", "Z9", "~~", "zzz"} {
		if got := Extend(key); got <= key {
			t.Fatalf("Extend(%q) = %q does not sort after input", key, got)
		}
	}
}

func TestGeneratorFuncFallsBackWhenNil(t *testing.T) {
	var fn GeneratorFunc
	got, err := fn.Between("", "")
	if err != nil || got != "i" {
		t.Fatalf("expected nil GeneratorFunc to use default, got %q err=%v", got, err)
	}
	var gen Generator = Base36{}
	if got, _ := gen.Between("a", "c"); got != "b" {
		t.Fatalf("expected Base36 midpoint b, got %q", got)
	}
}

func assertOrdered(t *testing.T, lo, mid, hi string) {
	t.Helper()
	if mid <= lo {
		t.Fatalf("expected %q > %q", mid, lo)
	}
	if hi != "" && mid >= hi {
		t.Fatalf("expected %q < %q", mid, hi)
	}
}
