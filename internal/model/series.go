package model

import "time"

// Provenance tells whether a series point was observed or predicted.
type Provenance string

const (
	ProvenanceReal      Provenance = "real"
	ProvenancePredicted Provenance = "predicho"
)

// ForecastPoint is one day of a reconciled series.
type ForecastPoint struct {
	Date       time.Time
	Price      int
	Provenance Provenance
}

// ReconciledEntity is the publishable result for one property.
type ReconciledEntity struct {
	Name           string
	StarRating     float64 // 0 when unknown
	AveragePrice   float64 // mean of real prices, two decimals
	ObservedNights int
	LowPrice       int
	HighPrice      int
	Series         []ForecastPoint // ascending by date, no duplicates
}

// RealCount returns how many points in the series were observed.
func (e *ReconciledEntity) RealCount() int {
	n := 0
	for _, p := range e.Series {
		if p.Provenance == ProvenanceReal {
			n++
		}
	}
	return n
}

// DailyPrice is one element of precios_por_dia.
type DailyPrice struct {
	Date       string     `json:"fecha"`
	Price      int        `json:"precio"`
	Provenance Provenance `json:"tipo"`
}

// HotelSummary is the snapshot representation of a reconciled property.
type HotelSummary struct {
	Name           string       `json:"nombre"`
	StarRating     float64      `json:"estrellas"`
	AveragePrice   float64      `json:"precio_promedio"`
	ObservedNights int          `json:"noches_contadas"`
	DailyPrices    []DailyPrice `json:"precios_por_dia"`
}

// Summary converts the entity to its snapshot form.
func (e *ReconciledEntity) Summary() HotelSummary {
	days := make([]DailyPrice, len(e.Series))
	for i, p := range e.Series {
		days[i] = DailyPrice{
			Date:       p.Date.Format(DateLayout),
			Price:      p.Price,
			Provenance: p.Provenance,
		}
	}
	return HotelSummary{
		Name:           e.Name,
		StarRating:     e.StarRating,
		AveragePrice:   e.AveragePrice,
		ObservedNights: e.ObservedNights,
		DailyPrices:    days,
	}
}
