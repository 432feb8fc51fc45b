// Package pipeline runs one collection, forecast and publish pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"StaySentinel/internal/aggregator"
	"StaySentinel/internal/collector"
	"StaySentinel/internal/config"
	"StaySentinel/internal/forecast"
	"StaySentinel/internal/metrics"
	"StaySentinel/internal/model"
	"StaySentinel/internal/notifier"
	"StaySentinel/internal/publisher"
	"StaySentinel/internal/reconciler"
	"StaySentinel/internal/recorder"
)

var (
	// ErrMissingOwner rejects a run before any work starts.
	ErrMissingOwner = errors.New("owner id is required")
	// ErrRunInProgress rejects a run while another one is still going.
	ErrRunInProgress = errors.New("a run is already in progress")
)

// Params are the per-run inputs. Empty Locality and zero WindowDays fall back to the config.
type Params struct {
	Owner      string
	Locality   string
	WindowDays int
	Trigger    model.TriggerType
}

// Result is everything a finished run produced.
type Result struct {
	Summary *model.RunSummary
	Batch   []*model.ReconciledEntity
	Outcome *publisher.Outcome
}

// Pipeline wires the stages together. Only one run executes at a time per process.
type Pipeline struct {
	Config   *config.Config
	Browsers collector.BrowserFactory
	Models   *forecast.Forecaster // nil builds the default forecaster per run
	Remote   publisher.RemoteStore
	Recorder recorder.Recorder
	Notifier notifier.Notifier
	Now      func() time.Time
	NewRunID func() string
	WaitDay  func(ctx context.Context, d time.Duration) error // nil uses the real delay
	mu       sync.Mutex
}

// New creates a Pipeline with the real clock and no-op recorder and notifier.
func New(cfg *config.Config, browsers collector.BrowserFactory, remote publisher.RemoteStore) *Pipeline {
	return &Pipeline{
		Config:   cfg,
		Browsers: browsers,
		Remote:   remote,
		Recorder: recorder.NewNoopRecorder(),
		Notifier: notifier.NoopNotifier{},
		Now:      time.Now,
		NewRunID: func() string { return uuid.NewString() },
	}
}

// Run executes one pass, logging to log. Fatal failures are returned as errors; per-day,
// per-property and per-record failures are logged and counted in the summary.
func (p *Pipeline) Run(ctx context.Context, params Params, log logrus.FieldLogger) (*Result, error) {
	params.Owner = strings.TrimSpace(params.Owner)
	if params.Owner == "" {
		metrics.RunsTotal.WithLabelValues(string(params.Trigger), "rejected").Inc()
		log.Error("owner id is required, aborting")
		return nil, ErrMissingOwner
	}
	if !p.mu.TryLock() {
		metrics.RunsTotal.WithLabelValues(string(params.Trigger), "rejected").Inc()
		log.Warn("another run is in progress, rejecting")
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	if params.Locality == "" {
		params.Locality = p.Config.Collector.Locality
	}
	if params.WindowDays <= 0 {
		params.WindowDays = p.Config.Collector.WindowDays
	}

	started := p.Now()
	summary := &model.RunSummary{
		RunID:         p.NewRunID(),
		Trigger:       params.Trigger,
		Owner:         params.Owner,
		Locality:      params.Locality,
		StartedAt:     started,
		DaysRequested: params.WindowDays,
		RemotePath:    model.RemoteSkipped,
	}
	log = log.WithField("run", summary.RunID)
	log.WithFields(logrus.Fields{"locality": params.Locality, "days": params.WindowDays, "trigger": params.Trigger}).Info("run started")

	res, err := p.run(ctx, params, summary, log)

	summary.FinishedAt = p.Now()
	status := "success"
	if err != nil {
		status = "failed"
		summary.Error = err.Error()
		log.WithError(err).Error("run failed")
	}
	metrics.RunsTotal.WithLabelValues(string(params.Trigger), status).Inc()
	metrics.RunDuration.Observe(summary.Duration().Seconds())
	metrics.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))

	if rerr := p.Recorder.RecordRun(summary); rerr != nil {
		log.WithError(rerr).Warn("record run")
	}
	var batch []*model.ReconciledEntity
	if res != nil {
		batch = res.Batch
	}
	if nerr := p.Notifier.Notify(ctx, notifier.FormatRunSummary(summary, batch)); nerr != nil {
		log.WithError(nerr).Warn("send run summary")
	}

	log.WithFields(logrus.Fields{
		"published": summary.EntitiesPublished,
		"dropped":   summary.EntitiesDropped,
		"malformed": summary.EntitiesMalformed,
		"remote":    summary.RemotePath,
		"duration":  summary.Duration().Round(time.Second).String(),
	}).Info("run finished")

	if err != nil {
		return &Result{Summary: summary}, err
	}
	res.Summary = summary
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, params Params, summary *model.RunSummary, log logrus.FieldLogger) (*Result, error) {
	today := model.Day(summary.StartedAt)

	col := collector.NewCollector(p.Browsers, p.Config.Collector, log)
	if p.WaitDay != nil {
		col.Wait = p.WaitDay
	}
	collected, err := col.Collect(ctx, params.Locality, params.WindowDays, today)
	if err != nil {
		return nil, err
	}
	summary.DaysCollected = collected.Collected()
	summary.DaysSkipped = len(collected.Days) - summary.DaysCollected
	summary.EntitiesSeen = collected.Book.Len()

	kept, dropped := aggregator.Filter(collected.Book.Histories(), log)
	summary.EntitiesDropped = len(dropped)
	metrics.EntitiesTotal.WithLabelValues("dropped").Add(float64(len(dropped)))

	fc := p.Models
	if fc == nil {
		fc = forecast.NewForecaster(log)
	} else {
		fc = &forecast.Forecaster{Primary: fc.Primary, Secondary: fc.Secondary, Log: log}
	}

	batch := make([]*model.ReconciledEntity, 0, len(kept))
	for _, h := range kept {
		hlog := log.WithField("hotel", h.Name)
		out, err := fc.Forecast(h, today)
		if err != nil {
			if errors.Is(err, forecast.ErrMalformedForecast) {
				summary.EntitiesMalformed++
				metrics.EntitiesTotal.WithLabelValues("malformed").Inc()
			} else {
				summary.EntitiesDropped++
				metrics.EntitiesTotal.WithLabelValues("dropped").Inc()
			}
			hlog.WithError(err).Warn("skipping hotel")
			continue
		}
		summary.CoercionFailures += out.CoercionFailures

		entity, err := reconciler.Reconcile(h, out, today)
		if err != nil {
			summary.EntitiesMalformed++
			metrics.EntitiesTotal.WithLabelValues("malformed").Inc()
			hlog.WithError(err).Warn("skipping hotel")
			continue
		}
		hlog.WithFields(logrus.Fields{
			"avg":    entity.AveragePrice,
			"nights": entity.ObservedNights,
			"points": len(entity.Series),
			"model":  out.Model,
		}).Info("hotel processed")
		batch = append(batch, entity)
	}
	summary.EntitiesPublished = len(batch)
	metrics.EntitiesTotal.WithLabelValues("published").Add(float64(len(batch)))

	pub := publisher.NewPublisher(p.Config.Publisher, p.Remote, p.Recorder, log)
	outcome, err := pub.Publish(ctx, batch, publisher.Run{ID: summary.RunID, Owner: params.Owner, StartedAt: summary.StartedAt})
	if err != nil {
		return &Result{Batch: batch}, fmt.Errorf("publish: %w", err)
	}
	summary.RemotePath = outcome.Path
	summary.RecordsAttempted = outcome.Attempted
	summary.RecordsFailed = outcome.Failed

	return &Result{Batch: batch, Outcome: outcome}, nil
}

// Running reports whether a run currently holds the guard.
func (p *Pipeline) Running() bool {
	if p.mu.TryLock() {
		p.mu.Unlock()
		return false
	}
	return true
}
