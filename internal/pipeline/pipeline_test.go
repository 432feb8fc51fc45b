package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySentinel/internal/collector"
	"StaySentinel/internal/config"
	"StaySentinel/internal/forecast"
	"StaySentinel/internal/logging"
	"StaySentinel/internal/model"
	"StaySentinel/internal/publisher"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type flatModel struct{ value float64 }

func (m *flatModel) Name() string                     { return "flat" }
func (m *flatModel) Fit([]time.Time, []float64) error { return nil }
func (m *flatModel) Predict(dates []time.Time) (*forecast.Frame, error) {
	est := make([]float64, len(dates))
	for i := range est {
		est[i] = m.value
	}
	return &forecast.Frame{Dates: dates, Columns: map[string][]float64{forecast.ColumnEstimate: est}}, nil
}

type memoryRemote struct {
	mu      sync.Mutex
	bulkErr error
	bulk    []publisher.BulkRow
	rows    map[string]publisher.DailyRow
}

func (m *memoryRemote) BulkRefresh(_ context.Context, rows []publisher.BulkRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bulkErr != nil {
		return m.bulkErr
	}
	m.bulk = append(m.bulk, rows...)
	return nil
}

func (m *memoryRemote) Upsert(_ context.Context, row publisher.DailyRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = map[string]publisher.DailyRow{}
	}
	m.rows[row.Name+"|"+row.Date] = row
	return nil
}

func (m *memoryRemote) Clear(context.Context, string, []string) error { return nil }

func (m *memoryRemote) Prune(context.Context, string, []string, time.Time) error { return nil }

func card(name string, price int) string {
	return fmt.Sprintf(`<div data-testid="property-card"><div data-testid="title">%s</div>`+
		`<span data-testid="price-and-discounted-price">MXN %d</span></div>`, name, price)
}

func page(cards ...string) string {
	return "<html><body>" + strings.Join(cards, "") + "</body></html>"
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Collector: config.Collector{
			Locality:    "Tijuana",
			WindowDays:  3,
			BaseURL:     "https://www.booking.com/searchresults.es.html",
			WaitTimeout: time.Second,
			DayDelay:    time.Hour,
			Adults:      1,
			Rooms:       1,
			Selectors: config.Selectors{
				Card:      `div[data-testid='property-card']`,
				Title:     `div[data-testid='title']`,
				Price:     `span[data-testid='price-and-discounted-price']`,
				Stars:     "div.ebc566407a",
				StarsAttr: "aria-label",
			},
		},
		Publisher: config.Publisher{
			SnapshotPath: filepath.Join(t.TempDir(), "out", "snapshot.json"),
			ClearMode:    config.ClearPrune,
		},
	}
}

func newTestPipeline(t *testing.T, browser *collector.MockBrowser, remote publisher.RemoteStore, primary forecast.ModelFactory) *Pipeline {
	t.Helper()
	p := New(testConfig(t), browser.Factory(), remote)
	p.Models = &forecast.Forecaster{Primary: primary}
	p.Now = func() time.Time { return now }
	p.NewRunID = func() string { return "run-1" }
	p.WaitDay = func(context.Context, time.Duration) error { return nil }
	return p
}

func flat(v float64) forecast.ModelFactory {
	return func() (forecast.Model, error) { return &flatModel{value: v}, nil }
}

func TestRun_MissingOwner(t *testing.T) {
	browser := &collector.MockBrowser{}
	p := newTestPipeline(t, browser, nil, flat(1))

	res, err := p.Run(context.Background(), Params{Owner: "   "}, logging.Discard())
	assert.ErrorIs(t, err, ErrMissingOwner)
	assert.Nil(t, res)
	assert.Empty(t, browser.URLs, "no page may be rendered without an owner")
	_, statErr := os.Stat(p.Config.Publisher.SnapshotPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_PublishesEligibleAndDropsSingleObservation(t *testing.T) {
	browser := &collector.MockBrowser{Pages: []string{
		page(card("X", 1000), card("Y", 900)),
		page(card("X", 1100)),
		page(card("X", 1050)),
	}}
	remote := &memoryRemote{}
	p := newTestPipeline(t, browser, remote, flat(1200))

	res, err := p.Run(context.Background(), Params{Owner: "user-1", Trigger: model.TriggerCLI}, logging.Discard())
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "Tijuana", s.Locality)
	assert.Equal(t, 3, s.DaysCollected)
	assert.Equal(t, 0, s.DaysSkipped)
	assert.Equal(t, 2, s.EntitiesSeen)
	assert.Equal(t, 1, s.EntitiesDropped)
	assert.Equal(t, 1, s.EntitiesPublished)
	assert.Equal(t, model.RemoteBulk, s.RemotePath)
	assert.Empty(t, s.Error)

	require.Len(t, res.Batch, 1)
	x := res.Batch[0]
	assert.Equal(t, "X", x.Name)
	assert.Equal(t, 1050.0, x.AveragePrice)
	assert.Equal(t, 3, x.ObservedNights)
	assert.Equal(t, 1000, x.LowPrice)
	assert.Equal(t, 1100, x.HighPrice)
	// June 1 through July 31.
	assert.Len(t, x.Series, 61)
	assert.Equal(t, model.ProvenanceReal, x.Series[0].Provenance)
	assert.Equal(t, model.ProvenancePredicted, x.Series[3].Provenance)
	assert.Equal(t, 1200, x.Series[3].Price)

	require.Len(t, remote.bulk, 1)
	assert.Equal(t, "X", remote.bulk[0].Name)
	assert.Equal(t, "user-1", remote.bulk[0].UserID)

	raw, err := os.ReadFile(p.Config.Publisher.SnapshotPath)
	require.NoError(t, err)
	var snapshot []model.HotelSummary
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, "X", snapshot[0].Name)
}

func TestRun_MalformedForecastSkipsOnlyThatHotel(t *testing.T) {
	browser := &collector.MockBrowser{Pages: []string{
		page(card("A", 500), card("B", 700)),
		page(card("A", 520), card("B", 710)),
	}}
	calls := 0
	primary := func() (forecast.Model, error) {
		calls++
		if calls == 1 {
			return &brokenModel{}, nil
		}
		return &flatModel{value: 600}, nil
	}
	p := newTestPipeline(t, browser, nil, primary)

	res, err := p.Run(context.Background(), Params{Owner: "user-1", WindowDays: 2}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.EntitiesMalformed)
	assert.Equal(t, 1, res.Summary.EntitiesPublished)
	require.Len(t, res.Batch, 1)
	assert.Equal(t, "B", res.Batch[0].Name)
	assert.Equal(t, model.RemoteSkipped, res.Summary.RemotePath)
}

type brokenModel struct{}

func (brokenModel) Name() string                     { return "broken" }
func (brokenModel) Fit([]time.Time, []float64) error { return nil }
func (brokenModel) Predict(dates []time.Time) (*forecast.Frame, error) {
	return &forecast.Frame{Dates: dates, Columns: map[string][]float64{"trend": make([]float64, len(dates))}}, nil
}

func TestRun_BulkFailureUsesFallback(t *testing.T) {
	browser := &collector.MockBrowser{Pages: []string{
		page(card("X", 1000)),
		page(card("X", 1100)),
	}}
	remote := &memoryRemote{bulkErr: errors.New("rpc unavailable")}
	p := newTestPipeline(t, browser, remote, flat(1000))

	res, err := p.Run(context.Background(), Params{Owner: "user-1", WindowDays: 2}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, model.RemoteFallback, res.Summary.RemotePath)
	assert.Equal(t, 61, res.Summary.RecordsAttempted)
	assert.Equal(t, 0, res.Summary.RecordsFailed)
	assert.Len(t, remote.rows, 61)
}

func TestRun_SnapshotFailureFailsRun(t *testing.T) {
	browser := &collector.MockBrowser{Pages: []string{page(card("X", 1000)), page(card("X", 1100))}}
	p := newTestPipeline(t, browser, nil, flat(1000))
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	p.Config.Publisher.SnapshotPath = filepath.Join(blocker, "snapshot.json")

	res, err := p.Run(context.Background(), Params{Owner: "user-1", WindowDays: 2}, logging.Discard())
	assert.ErrorIs(t, err, publisher.ErrSnapshotWrite)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Summary.Error)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := New(testConfig(t), func(context.Context) (collector.Browser, error) {
		close(entered)
		<-release
		return nil, errors.New("no browser")
	}, nil)
	p.WaitDay = func(context.Context, time.Duration) error { return nil }

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), Params{Owner: "user-1"}, logging.Discard())
		done <- err
	}()
	<-entered
	assert.True(t, p.Running())

	_, err := p.Run(context.Background(), Params{Owner: "user-1"}, logging.Discard())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	assert.Error(t, <-done)
	assert.False(t, p.Running())
}
