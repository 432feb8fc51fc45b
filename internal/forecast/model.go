package forecast

import (
	"fmt"
	"time"

	forecaster "github.com/aouyang1/go-forecaster"
)

// Frame columns.
const (
	ColumnEstimate = "yhat"
	ColumnLower    = "yhat_lower"
	ColumnUpper    = "yhat_upper"
)

// Frame is a model's raw output: one row per date, named value columns.
type Frame struct {
	Dates   []time.Time
	Columns map[string][]float64
}

// Rows returns the number of dates in the frame.
func (f *Frame) Rows() int {
	if f == nil {
		return 0
	}
	return len(f.Dates)
}

// Model is an additive trend-plus-seasonality model fit to one property's prices.
type Model interface {
	Name() string
	Fit(dates []time.Time, prices []float64) error
	Predict(dates []time.Time) (*Frame, error)
}

// ModelFactory returns a fresh, unfit model.
type ModelFactory func() (Model, error)

// AdditiveModel fits a linear trend plus Fourier seasonality using go-forecaster.
type AdditiveModel struct {
	f *forecaster.Forecaster
}

// NewAdditiveModel creates an AdditiveModel with the library defaults.
func NewAdditiveModel() (Model, error) {
	f, err := forecaster.New(nil)
	if err != nil {
		return nil, fmt.Errorf("new forecaster: %w", err)
	}
	return &AdditiveModel{f: f}, nil
}

func (m *AdditiveModel) Name() string { return "additive" }

func (m *AdditiveModel) Fit(dates []time.Time, prices []float64) error {
	if err := m.f.Fit(dates, prices); err != nil {
		return fmt.Errorf("fit additive model: %w", err)
	}
	return nil
}

func (m *AdditiveModel) Predict(dates []time.Time) (*Frame, error) {
	res, err := m.f.Predict(dates)
	if err != nil {
		return nil, fmt.Errorf("predict additive model: %w", err)
	}
	cols := map[string][]float64{ColumnEstimate: res.Forecast}
	if len(res.Lower) == len(res.Forecast) {
		cols[ColumnLower] = res.Lower
	}
	if len(res.Upper) == len(res.Forecast) {
		cols[ColumnUpper] = res.Upper
	}
	return &Frame{Dates: res.T, Columns: cols}, nil
}
