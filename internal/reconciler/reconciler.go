// Package reconciler merges observed prices with forecast estimates into one daily series.
package reconciler

import (
	"fmt"
	"sort"
	"time"

	"StaySentinel/internal/calculator"
	"StaySentinel/internal/forecast"
	"StaySentinel/internal/model"
)

// Reconcile builds the publishable series for h. For every forecast date: an observed price
// wins; otherwise a date on or after today gets the rounded, non-negative estimate; earlier
// dates without an observation are left out. Observed dates the forecast did not cover are
// still emitted.
func Reconcile(h *model.EntityHistory, out *forecast.Output, today time.Time) (*model.ReconciledEntity, error) {
	if len(out.Dates) != len(out.Estimates) {
		return nil, fmt.Errorf("%w: %d dates, %d estimates", forecast.ErrMalformedForecast, len(out.Dates), len(out.Estimates))
	}
	today = model.Day(today)

	observed := make(map[time.Time]int, len(h.Observations))
	var realPrices []int
	for _, o := range h.Observations {
		if o.Price <= 0 {
			continue
		}
		observed[o.Date] = o.Price
		realPrices = append(realPrices, o.Price)
	}

	seen := make(map[time.Time]bool, len(out.Dates))
	series := make([]model.ForecastPoint, 0, len(out.Dates))
	for i, date := range out.Dates {
		date = model.Day(date)
		if seen[date] {
			continue
		}
		seen[date] = true

		if p, ok := observed[date]; ok {
			series = append(series, model.ForecastPoint{Date: date, Price: p, Provenance: model.ProvenanceReal})
			continue
		}
		if date.Before(today) {
			continue
		}
		series = append(series, model.ForecastPoint{
			Date:       date,
			Price:      calculator.ClampNonNegative(out.Estimates[i]),
			Provenance: model.ProvenancePredicted,
		})
	}
	for date, p := range observed {
		if !seen[date] {
			series = append(series, model.ForecastPoint{Date: date, Price: p, Provenance: model.ProvenanceReal})
		}
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	e := &model.ReconciledEntity{
		Name:           h.Name,
		ObservedNights: len(realPrices),
		Series:         series,
	}
	if h.StarRating != nil {
		e.StarRating = *h.StarRating
	}
	if avg, err := calculator.Mean(realPrices); err == nil {
		e.AveragePrice = calculator.Round(avg, 2)
	}
	if low, high, err := calculator.PriceRange(realPrices); err == nil {
		e.LowPrice, e.HighPrice = low, high
	}
	return e, nil
}
