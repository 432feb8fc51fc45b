// Package forecast fits an additive time-series model to each property's observed prices
// and projects it through the horizon.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"StaySentinel/internal/aggregator"
	"StaySentinel/internal/metrics"
	"StaySentinel/internal/model"
)

// DefaultEstimate replaces any estimate that is not a finite number.
const DefaultEstimate = 0.0

// ErrMalformedForecast means the model output cannot be reconciled. The property is skipped.
var ErrMalformedForecast = errors.New("malformed forecast")

// Output is a validated, normalized forecast for one property.
type Output struct {
	Model            string
	Dates            []time.Time
	Estimates        []float64
	CoercionFailures int
}

// Horizon returns the last calendar day of the month after today's month.
func Horizon(today time.Time) time.Time {
	y, m, _ := today.Date()
	return time.Date(y, m+2, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// DateRange returns every calendar day from `from` through `to`, inclusive.
func DateRange(from, to time.Time) []time.Time {
	from, to = model.Day(from), model.Day(to)
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Validate checks the frame has at least two rows and one estimate per row.
func Validate(f *Frame) error {
	if f == nil {
		return fmt.Errorf("%w: no output", ErrMalformedForecast)
	}
	if f.Rows() < 2 {
		return fmt.Errorf("%w: %d rows", ErrMalformedForecast, f.Rows())
	}
	est, ok := f.Columns[ColumnEstimate]
	if !ok {
		return fmt.Errorf("%w: missing %q column (have %v)", ErrMalformedForecast, ColumnEstimate, columnNames(f))
	}
	if len(est) != f.Rows() {
		return fmt.Errorf("%w: %d estimates for %d rows", ErrMalformedForecast, len(est), f.Rows())
	}
	return nil
}

// NormalizeEstimates replaces non-finite values with DefaultEstimate and reports how many were replaced.
func NormalizeEstimates(values []float64) ([]float64, int) {
	out := make([]float64, len(values))
	failures := 0
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = DefaultEstimate
			failures++
			continue
		}
		out[i] = v
	}
	return out, failures
}

// Forecaster runs one model per property. When the primary model fails to fit or predict,
// or returns no finite estimate at all, the secondary model is tried before giving up on the property.
type Forecaster struct {
	Primary   ModelFactory
	Secondary ModelFactory
	Log       logrus.FieldLogger
}

// NewForecaster creates a Forecaster using go-forecaster with the trend model as secondary.
func NewForecaster(log logrus.FieldLogger) *Forecaster {
	return &Forecaster{Primary: NewAdditiveModel, Secondary: NewTrendModel, Log: log}
}

// Forecast fits h and predicts every day from its earliest observation through Horizon(today).
func (f *Forecaster) Forecast(h *model.EntityHistory, today time.Time) (*Output, error) {
	if err := aggregator.Check(h); err != nil {
		return nil, err
	}
	dates, prices := h.Series()
	targets := DateRange(h.Earliest(), Horizon(today))
	log := f.Log.WithField("hotel", h.Name)

	name, frame, err := run(f.Primary, dates, prices, targets)
	if err != nil && f.Secondary != nil {
		log.WithError(err).Warn("primary model failed, using secondary")
		metrics.ModelFallbacksTotal.Inc()
		name, frame, err = run(f.Secondary, dates, prices, targets)
	} else if err == nil && f.Secondary != nil && allNonFinite(frame) {
		log.WithField("model", name).Warn("primary model produced no finite estimates, using secondary")
		metrics.ModelFallbacksTotal.Inc()
		name, frame, err = run(f.Secondary, dates, prices, targets)
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(frame); err != nil {
		log.WithFields(logrus.Fields{"rows": frame.Rows(), "columns": columnNames(frame)}).Warn("forecast output rejected")
		return nil, err
	}

	est, failures := NormalizeEstimates(frame.Columns[ColumnEstimate])
	if failures > 0 {
		metrics.EstimateCoercionsTotal.Add(float64(failures))
		log.WithField("count", failures).Warn("non-numeric estimates replaced with default")
	}
	out := &Output{Model: name, Estimates: est, CoercionFailures: failures, Dates: make([]time.Time, len(frame.Dates))}
	for i, d := range frame.Dates {
		out.Dates[i] = model.Day(d)
	}
	log.WithFields(logrus.Fields{"model": name, "rows": len(out.Dates), "horizon": Horizon(today).Format(model.DateLayout)}).Debug("forecast ready")
	return out, nil
}

func run(factory ModelFactory, dates []time.Time, prices []float64, targets []time.Time) (string, *Frame, error) {
	m, err := factory()
	if err != nil {
		return "", nil, err
	}
	if err := m.Fit(dates, prices); err != nil {
		return m.Name(), nil, err
	}
	frame, err := m.Predict(targets)
	if err != nil {
		return m.Name(), nil, err
	}
	return m.Name(), frame, nil
}

// allNonFinite reports whether every estimate in a well-formed frame would need coercion.
func allNonFinite(f *Frame) bool {
	if Validate(f) != nil {
		return false
	}
	for _, v := range f.Columns[ColumnEstimate] {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func columnNames(f *Frame) []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.Columns))
	for k := range f.Columns {
		names = append(names, k)
	}
	return names
}
