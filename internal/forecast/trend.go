package forecast

import (
	"errors"
	"math"
	"time"
)

// TrendModel is a least-squares linear trend plus day-of-week offsets. It is the secondary
// model for short series the Fourier fit cannot handle.
type TrendModel struct {
	origin    time.Time
	intercept float64
	slope     float64 // per day
	weekday   [7]float64
	spread    float64 // residual standard deviation
	fitted    bool
}

func NewTrendModel() (Model, error) { return &TrendModel{}, nil }

func (m *TrendModel) Name() string { return "trend" }

func (m *TrendModel) Fit(dates []time.Time, prices []float64) error {
	if len(dates) != len(prices) {
		return errors.New("dates and prices differ in length")
	}
	if len(dates) < 2 {
		return errors.New("need at least two points")
	}
	m.origin = dates[0]

	n := float64(len(dates))
	var sx, sy, sxx, sxy float64
	for i, d := range dates {
		x := m.dayIndex(d)
		y := prices[i]
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if den == 0 {
		m.slope = 0
		m.intercept = sy / n
	} else {
		m.slope = (n*sxy - sx*sy) / den
		m.intercept = (sy - m.slope*sx) / n
	}

	var sums [7]float64
	var counts [7]int
	for i, d := range dates {
		r := prices[i] - m.trend(d)
		wd := d.Weekday()
		sums[wd] += r
		counts[wd]++
	}
	for wd := range sums {
		if counts[wd] > 0 {
			m.weekday[wd] = sums[wd] / float64(counts[wd])
		}
	}

	var ss float64
	for i, d := range dates {
		r := prices[i] - m.value(d)
		ss += r * r
	}
	m.spread = math.Sqrt(ss / n)
	m.fitted = true
	return nil
}

func (m *TrendModel) Predict(dates []time.Time) (*Frame, error) {
	if !m.fitted {
		return nil, errors.New("trend model is not fit")
	}
	est := make([]float64, len(dates))
	lower := make([]float64, len(dates))
	upper := make([]float64, len(dates))
	for i, d := range dates {
		v := m.value(d)
		est[i] = v
		lower[i] = v - 1.96*m.spread
		upper[i] = v + 1.96*m.spread
	}
	out := make([]time.Time, len(dates))
	copy(out, dates)
	return &Frame{
		Dates: out,
		Columns: map[string][]float64{
			ColumnEstimate: est,
			ColumnLower:    lower,
			ColumnUpper:    upper,
		},
	}, nil
}

func (m *TrendModel) dayIndex(d time.Time) float64 {
	return d.Sub(m.origin).Hours() / 24
}

func (m *TrendModel) trend(d time.Time) float64 {
	return m.intercept + m.slope*m.dayIndex(d)
}

func (m *TrendModel) value(d time.Time) float64 {
	return m.trend(d) + m.weekday[d.Weekday()]
}
