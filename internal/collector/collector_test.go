package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySentinel/internal/config"
	"StaySentinel/internal/logging"
)

var today = time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)

func testOptions() config.Collector {
	return config.Collector{
		BaseURL:     "https://www.booking.com/searchresults.es.html",
		WaitTimeout: time.Second,
		Adults:      1,
		Rooms:       1,
		ExtraParams: map[string]string{"ht_id": "204"},
		Selectors: config.Selectors{
			Card:      `div[data-testid='property-card']`,
			Title:     `div[data-testid='title']`,
			Price:     `span[data-testid='price-and-discounted-price']`,
			Stars:     "div.ebc566407a",
			StarsAttr: "aria-label",
		},
	}
}

func card(name, price, starLabel string) string {
	var b strings.Builder
	b.WriteString(`<div data-testid="property-card">`)
	if name != "" {
		fmt.Fprintf(&b, `<div data-testid="title">%s</div>`, name)
	}
	if price != "" {
		fmt.Fprintf(&b, `<span data-testid="price-and-discounted-price">%s</span>`, price)
	}
	if starLabel != "" {
		fmt.Fprintf(&b, `<div class="ebc566407a" aria-label="%s"></div>`, starLabel)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func page(cards ...string) string {
	return "<html><body>" + strings.Join(cards, "") + "</body></html>"
}

func newTestCollector(b *MockBrowser) *Collector {
	c := NewCollector(b.Factory(), testOptions(), logging.Discard())
	c.Wait = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestExtract(t *testing.T) {
	html := page(
		card("Hotel Lucerna", "MXN 1,850", "4,5 de 5 estrellas"),
		card("  Hotel   Ticuán ", "MXN 990", ""),
		card("", "MXN 700", ""),
		card("Sin Precio", "", ""),
		card("Gratis", "MXN 0", ""),
		card("Rating Raro", "MXN 1,000", "sin calificación"),
	)
	cards, discarded, err := Extract(html, testOptions().Selectors)
	require.NoError(t, err)
	assert.Equal(t, 3, discarded)
	require.Len(t, cards, 3)

	assert.Equal(t, "Hotel Lucerna", cards[0].Name)
	assert.Equal(t, 1850, cards[0].Price)
	require.NotNil(t, cards[0].StarRating)
	assert.Equal(t, 4.5, *cards[0].StarRating)

	assert.Equal(t, "Hotel Ticuán", cards[1].Name)
	assert.Nil(t, cards[1].StarRating)

	assert.Equal(t, "Rating Raro", cards[2].Name)
	assert.Nil(t, cards[2].StarRating)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"MXN 1,234", 1234},
		{"$ 2.500", 2500},
		{"", 0},
		{"gratis", 0},
		{"99999999999999999999999", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePrice(tt.in), tt.in)
	}
}

func TestParseStars(t *testing.T) {
	assert.Equal(t, 3.0, *ParseStars("3 de 5 estrellas"))
	assert.Equal(t, 4.5, *ParseStars("4.5 out of 5"))
	assert.Nil(t, ParseStars(""))
	assert.Nil(t, ParseStars("NaN estrellas"))
	assert.Nil(t, ParseStars("-1 de 5"))
}

func TestBuildQueryURL(t *testing.T) {
	raw := BuildQueryURL(testOptions(), "Tijuana", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "www.booking.com", u.Host)
	assert.Equal(t, "Tijuana", q.Get("ss"))
	assert.Equal(t, "2025-06-30", q.Get("checkin"))
	assert.Equal(t, "2025-07-01", q.Get("checkout"))
	assert.Equal(t, "1", q.Get("group_adults"))
	assert.Equal(t, "1", q.Get("no_rooms"))
	assert.Equal(t, "0", q.Get("group_children"))
	assert.Equal(t, "204", q.Get("ht_id"))
}

func TestCollect_SkipsTimedOutDay(t *testing.T) {
	b := &MockBrowser{
		Pages: []string{
			page(card("Hotel A", "MXN 1,000", "")),
			"",
			page(card("Hotel A", "MXN 1,100", ""), card("Hotel B", "MXN 800", "")),
		},
		Errs: []error{nil, fmt.Errorf("wrapped: %w", ErrRenderTimeout), nil},
	}
	res, err := newTestCollector(b).Collect(context.Background(), "Tijuana", 3, today)
	require.NoError(t, err)
	require.Nil(t, res.Aborted)

	require.Len(t, res.Days, 3)
	assert.True(t, res.Days[1].Skipped())
	assert.Equal(t, 2, res.Collected())
	assert.Equal(t, 1, b.Closed)
	assert.Len(t, b.URLs, 3)

	a := res.Book.Get("Hotel A")
	require.NotNil(t, a)
	require.Len(t, a.Observations, 2)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), a.Observations[0].Date)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), a.Observations[1].Date)
	assert.Len(t, res.Book.Get("Hotel B").Observations, 1)
}

func TestCollect_SessionLostKeepsPartialData(t *testing.T) {
	b := &MockBrowser{
		Pages: []string{page(card("Hotel A", "MXN 1,000", ""))},
		Errs:  []error{nil, ErrSessionLost},
	}
	res, err := newTestCollector(b).Collect(context.Background(), "Tijuana", 5, today)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Aborted, ErrSessionLost)
	assert.Len(t, b.URLs, 2)
	assert.Equal(t, 1, res.Book.Len())
	assert.Equal(t, 1, b.Closed)
}

type panickyBrowser struct{ closed bool }

func (p *panickyBrowser) Render(context.Context, string, string, time.Duration) (string, error) {
	panic("devtools exploded")
}

func (p *panickyBrowser) Close() error {
	p.closed = true
	return nil
}

func TestCollect_PanicStillClosesBrowser(t *testing.T) {
	pb := &panickyBrowser{}
	c := NewCollector(func(context.Context) (Browser, error) { return pb, nil }, testOptions(), logging.Discard())

	res, err := c.Collect(context.Background(), "Tijuana", 2, today)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Error(t, res.Aborted)
	assert.True(t, pb.closed)
}

func TestCollect_BrowserCreationIsFatal(t *testing.T) {
	c := NewCollector(func(context.Context) (Browser, error) {
		return nil, errors.New("chrome not found")
	}, testOptions(), logging.Discard())

	res, err := c.Collect(context.Background(), "Tijuana", 2, today)
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestCollect_CancelledDuringDelay(t *testing.T) {
	b := &MockBrowser{Pages: []string{page(card("Hotel A", "MXN 1,000", "")), page()}}
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollector(b.Factory(), testOptions(), logging.Discard())
	c.Wait = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res, err := c.Collect(ctx, "Tijuana", 2, today)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Aborted, context.Canceled)
	assert.Len(t, b.URLs, 1)
	assert.Equal(t, 1, b.Closed)
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
