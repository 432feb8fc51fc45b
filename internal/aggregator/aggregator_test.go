package aggregator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySentinel/internal/logging"
	"StaySentinel/internal/model"
)

var day0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func obs(name string, offset, price int) model.PriceObservation {
	return model.PriceObservation{EntityName: name, Date: day0.AddDate(0, 0, offset), Price: price}
}

func TestBook_FirstSightingOrder(t *testing.T) {
	b := NewBook()
	b.Add(obs("Hotel B", 0, 900))
	b.Add(obs("Hotel A", 0, 1200))
	b.Add(obs("Hotel B", 1, 950))

	require.Equal(t, 2, b.Len())
	hs := b.Histories()
	assert.Equal(t, "Hotel B", hs[0].Name)
	assert.Equal(t, "Hotel A", hs[1].Name)
	assert.Len(t, b.Get("Hotel B").Observations, 2)
	assert.Nil(t, b.Get("Hotel C"))
}

func TestFilter_DropsSingleObservation(t *testing.T) {
	b := NewBook()
	b.Add(obs("Y", 0, 800))
	b.Add(obs("X", 0, 1000))
	b.Add(obs("X", 1, 1100))
	b.Add(obs("X", 2, 1050))

	kept, dropped := Filter(b.Histories(), logging.Discard())
	require.Len(t, kept, 1)
	assert.Equal(t, "X", kept[0].Name)
	assert.Equal(t, []string{"Y"}, dropped)
}

func TestFilter_EveryKeptHistoryIsEligible(t *testing.T) {
	b := NewBook()
	for i, name := range []string{"A", "B", "C", "D"} {
		for d := 0; d <= i; d++ {
			b.Add(obs(name, d, 500+d))
		}
	}
	kept, dropped := Filter(b.Histories(), logging.Discard())
	for _, h := range kept {
		assert.GreaterOrEqual(t, h.PositiveCount(), model.MinObservations, h.Name)
	}
	assert.Equal(t, []string{"A"}, dropped)
	assert.Len(t, kept, 3)
}

func TestCheck_Sentinel(t *testing.T) {
	h := model.NewEntityHistory("Z")
	err := Check(h)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
}
