package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"StaySentinel/internal/aggregator"
	"StaySentinel/internal/config"
	"StaySentinel/internal/metrics"
	"StaySentinel/internal/model"
)

// DayResult is the outcome of one window day.
type DayResult struct {
	Date      time.Time
	Accepted  int
	Discarded int
	Err       error
}

// Skipped reports whether the day produced no data.
func (d DayResult) Skipped() bool { return d.Err != nil }

// Result holds everything gathered during one collection pass.
type Result struct {
	Book    *aggregator.Book
	Days    []DayResult
	Aborted error // set when a session-level failure ended the window early
}

// Collected returns how many days produced data.
func (r *Result) Collected() int {
	n := 0
	for _, d := range r.Days {
		if !d.Skipped() {
			n++
		}
	}
	return n
}

// Collector walks the stay window one check-in day at a time over a single rendering session.
type Collector struct {
	NewBrowser BrowserFactory
	Options    config.Collector
	Log        logrus.FieldLogger
	Wait       func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a new Collector.
func NewCollector(factory BrowserFactory, opts config.Collector, log logrus.FieldLogger) *Collector {
	return &Collector{NewBrowser: factory, Options: opts, Log: log, Wait: sleepCtx}
}

// Collect renders and extracts windowDays consecutive days starting at today. The session is
// closed on every exit path. Only a failure to open the session is returned as an error;
// anything that ends the loop early keeps the data gathered so far.
func (c *Collector) Collect(ctx context.Context, locality string, windowDays int, today time.Time) (res *Result, err error) {
	browser, err := c.NewBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	res = &Result{Book: aggregator.NewBook()}

	defer func() {
		if r := recover(); r != nil {
			res.Aborted = fmt.Errorf("collector panic: %v", r)
			c.Log.WithError(res.Aborted).Error("collection aborted, keeping partial data")
			err = nil
		}
		if cerr := browser.Close(); cerr != nil {
			c.Log.WithError(cerr).Warn("close browser")
		}
	}()

	start := model.Day(today)
	c.Log.WithFields(logrus.Fields{"locality": locality, "days": windowDays}).Info("collecting prices")

	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i)
		dr := c.collectDay(ctx, browser, locality, day, res.Book)
		res.Days = append(res.Days, dr)

		if dr.Err != nil {
			metrics.DaysTotal.WithLabelValues("skipped").Inc()
			if ctx.Err() != nil || errors.Is(dr.Err, ErrSessionLost) {
				res.Aborted = dr.Err
				c.Log.WithError(dr.Err).Errorf("collection stopped at day %d/%d, keeping partial data", i+1, windowDays)
				return res, nil
			}
			c.Log.WithField("date", day.Format(model.DateLayout)).WithError(dr.Err).Warn("skipping day")
		} else {
			metrics.DaysTotal.WithLabelValues("collected").Inc()
		}

		if i < windowDays-1 {
			if werr := c.wait(ctx); werr != nil {
				res.Aborted = werr
				c.Log.WithError(werr).Error("collection interrupted, keeping partial data")
				return res, nil
			}
		}
	}

	c.Log.WithFields(logrus.Fields{
		"days_collected": res.Collected(),
		"hotels":         res.Book.Len(),
	}).Info("collection finished")
	return res, nil
}

func (c *Collector) collectDay(ctx context.Context, browser Browser, locality string, day time.Time, book *aggregator.Book) DayResult {
	dr := DayResult{Date: day}
	url := BuildQueryURL(c.Options, locality, day)

	html, err := browser.Render(ctx, url, c.Options.Selectors.Card, c.Options.WaitTimeout)
	if err != nil {
		dr.Err = err
		return dr
	}
	cards, discarded, err := Extract(html, c.Options.Selectors)
	if err != nil {
		dr.Err = err
		return dr
	}

	for _, card := range cards {
		book.Add(model.PriceObservation{
			EntityName: card.Name,
			Date:       day,
			Price:      card.Price,
			StarRating: card.StarRating,
		})
	}
	dr.Accepted = len(cards)
	dr.Discarded = discarded
	metrics.CardsTotal.WithLabelValues("accepted").Add(float64(dr.Accepted))
	metrics.CardsTotal.WithLabelValues("discarded").Add(float64(dr.Discarded))

	c.Log.WithFields(logrus.Fields{
		"date":      day.Format(model.DateLayout),
		"accepted":  dr.Accepted,
		"discarded": dr.Discarded,
	}).Info("day collected")
	return dr
}

func (c *Collector) wait(ctx context.Context) error {
	if c.Wait == nil {
		return sleepCtx(ctx, c.Options.DayDelay)
	}
	return c.Wait(ctx, c.Options.DayDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
