// Package aggregator groups collected observations per property and decides which
// properties carry enough history to forecast.
package aggregator

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"StaySentinel/internal/model"
)

// ErrInsufficientHistory marks a property with fewer than model.MinObservations positive prices.
var ErrInsufficientHistory = errors.New("insufficient price history")

// Book accumulates observations by property name, remembering first-sighting order.
type Book struct {
	order  []string
	byName map[string]*model.EntityHistory
}

func NewBook() *Book {
	return &Book{byName: make(map[string]*model.EntityHistory)}
}

// Add appends obs to its property's history, creating the history on first sight.
func (b *Book) Add(obs model.PriceObservation) {
	h, ok := b.byName[obs.EntityName]
	if !ok {
		h = model.NewEntityHistory(obs.EntityName)
		b.byName[obs.EntityName] = h
		b.order = append(b.order, obs.EntityName)
	}
	h.Append(obs)
}

// Get returns the history for name, or nil.
func (b *Book) Get(name string) *model.EntityHistory {
	return b.byName[name]
}

// Len returns the number of distinct properties seen.
func (b *Book) Len() int { return len(b.order) }

// Histories returns every history in first-sighting order.
func (b *Book) Histories() []*model.EntityHistory {
	out := make([]*model.EntityHistory, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.byName[name])
	}
	return out
}

// Check returns ErrInsufficientHistory when h cannot be forecast.
func Check(h *model.EntityHistory) error {
	if n := h.PositiveCount(); n < model.MinObservations {
		return fmt.Errorf("%w: %d of %d observations", ErrInsufficientHistory, n, model.MinObservations)
	}
	return nil
}

// Filter splits histories into those eligible for forecasting and the names of those dropped.
// Every dropped property is logged as a warning.
func Filter(histories []*model.EntityHistory, log logrus.FieldLogger) (kept []*model.EntityHistory, dropped []string) {
	for _, h := range histories {
		if err := Check(h); err != nil {
			log.WithField("hotel", h.Name).Warnf("skipping forecast: %v", err)
			dropped = append(dropped, h.Name)
			continue
		}
		kept = append(kept, h)
	}
	return kept, dropped
}
