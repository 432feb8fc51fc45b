package calculator

import (
	"errors"
	"math"
)

// Mean returns the arithmetic mean of the given prices.
func Mean(prices []int) (float64, error) {
	if len(prices) == 0 {
		return 0, errors.New("not enough data for mean calculation")
	}
	sum := 0.0
	for _, p := range prices {
		sum += float64(p)
	}
	return sum / float64(len(prices)), nil
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
