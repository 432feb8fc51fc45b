package model

import (
	"sort"
	"time"
)

// DateLayout is the calendar-date format used on every wire surface.
const DateLayout = "2006-01-02"

// MinObservations is the minimum number of positive-price observations an entity needs
// before a model can be fit to it.
const MinObservations = 2

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PriceObservation is one accepted property card from one day's results page.
type PriceObservation struct {
	EntityName string
	Date       time.Time
	Price      int
	StarRating *float64
}

// DatedPrice is a single observed nightly price.
type DatedPrice struct {
	Date  time.Time
	Price int
}

// EntityHistory holds every observation of one property within a run.
type EntityHistory struct {
	Name         string
	StarRating   *float64
	Observations []DatedPrice // ordered by date, one per date
}

// NewEntityHistory creates an empty history for the named property.
func NewEntityHistory(name string) *EntityHistory {
	return &EntityHistory{Name: name}
}

// Append adds an observation, keeping Observations ordered by date. A second observation
// for a date already present replaces the earlier price. A known star rating overwrites the
// stored one; an unknown rating leaves it untouched.
func (h *EntityHistory) Append(obs PriceObservation) {
	if obs.StarRating != nil {
		r := *obs.StarRating
		h.StarRating = &r
	}
	day := Day(obs.Date)
	i := sort.Search(len(h.Observations), func(i int) bool {
		return !h.Observations[i].Date.Before(day)
	})
	if i < len(h.Observations) && h.Observations[i].Date.Equal(day) {
		h.Observations[i].Price = obs.Price
		return
	}
	h.Observations = append(h.Observations, DatedPrice{})
	copy(h.Observations[i+1:], h.Observations[i:])
	h.Observations[i] = DatedPrice{Date: day, Price: obs.Price}
}

// PositiveCount returns the number of observations with a price above zero.
func (h *EntityHistory) PositiveCount() int {
	n := 0
	for _, o := range h.Observations {
		if o.Price > 0 {
			n++
		}
	}
	return n
}

// Eligible reports whether the history has enough data to be forecast.
func (h *EntityHistory) Eligible() bool {
	return h.PositiveCount() >= MinObservations
}

// Earliest returns the first observed date, or the zero time for an empty history.
func (h *EntityHistory) Earliest() time.Time {
	if len(h.Observations) == 0 {
		return time.Time{}
	}
	return h.Observations[0].Date
}

// Series returns the observed dates and prices as parallel slices for model fitting.
func (h *EntityHistory) Series() ([]time.Time, []float64) {
	dates := make([]time.Time, 0, len(h.Observations))
	prices := make([]float64, 0, len(h.Observations))
	for _, o := range h.Observations {
		if o.Price <= 0 {
			continue
		}
		dates = append(dates, o.Date)
		prices = append(prices, float64(o.Price))
	}
	return dates, prices
}
