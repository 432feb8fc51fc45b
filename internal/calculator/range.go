package calculator

import (
	"errors"
	"math"
)

// PriceRange returns the lowest and highest of the given prices.
func PriceRange(prices []int) (low, high int, err error) {
	if len(prices) == 0 {
		return 0, 0, errors.New("no prices provided")
	}
	low, high = math.MaxInt, math.MinInt
	for _, p := range prices {
		if p < low {
			low = p
		}
		if p > high {
			high = p
		}
	}
	return low, high, nil
}

// ClampNonNegative rounds v half away from zero and floors the result at zero.
func ClampNonNegative(v float64) int {
	r := math.Round(v)
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(r)
}
