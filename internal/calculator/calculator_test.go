package calculator

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	got, err := Mean([]int{1000, 1100, 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Round(got, 2) != 1033.33 {
		t.Errorf("expected 1033.33, got %.4f", got)
	}
	if _, err := Mean(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestRound(t *testing.T) {
	cases := map[float64]float64{
		1033.3333: 1033.33,
		0.125:     0.13,
		12:        12,
		-0.004:    0,
	}
	for in, want := range cases {
		if got := Round(in, 2); got != want {
			t.Errorf("Round(%v, 2) = %v, want %v", in, got, want)
		}
	}
}

func TestPriceRange(t *testing.T) {
	low, high, err := PriceRange([]int{1200, 850, 990})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if low != 850 || high != 1200 {
		t.Errorf("expected 850..1200, got %d..%d", low, high)
	}
	if _, _, err := PriceRange(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestClampNonNegative(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{1014.5, 1015},
		{1014.49, 1014},
		{-12.7, 0},
		{math.NaN(), 0},
		{0, 0},
	}
	for _, c := range cases {
		if got := ClampNonNegative(c.in); got != c.want {
			t.Errorf("ClampNonNegative(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
