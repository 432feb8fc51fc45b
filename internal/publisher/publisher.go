// Package publisher persists a reconciled batch: first to a local snapshot file, then to the
// shared remote store through a bulk refresh, falling back to per-record upserts.
package publisher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"StaySentinel/internal/config"
	"StaySentinel/internal/metrics"
	"StaySentinel/internal/model"
	"StaySentinel/internal/recorder"
)

// Run identifies the pass a batch belongs to.
type Run struct {
	ID        string
	Owner     string
	StartedAt time.Time
}

// Outcome reports how the batch reached the remote store.
type Outcome struct {
	Path      string
	Attempted int
	Succeeded int
	Failed    int
}

// Publisher writes the snapshot and syncs the remote store.
type Publisher struct {
	SnapshotPath string
	ClearMode    string
	RecordDelay  time.Duration
	Remote       RemoteStore // nil disables the remote sync
	Mirror       recorder.Recorder
	Log          logrus.FieldLogger
}

// NewPublisher creates a Publisher from the publisher config.
func NewPublisher(cfg config.Publisher, remote RemoteStore, mirror recorder.Recorder, log logrus.FieldLogger) *Publisher {
	if mirror == nil {
		mirror = recorder.NewNoopRecorder()
	}
	return &Publisher{
		SnapshotPath: cfg.SnapshotPath,
		ClearMode:    cfg.ClearMode,
		RecordDelay:  cfg.RecordDelay,
		Remote:       remote,
		Mirror:       mirror,
		Log:          log,
	}
}

// Publish persists batch. Only a snapshot failure is returned as an error; remote failures are
// logged and reported through the Outcome.
func (p *Publisher) Publish(ctx context.Context, batch []*model.ReconciledEntity, run Run) (*Outcome, error) {
	summaries := make([]model.HotelSummary, len(batch))
	for i, e := range batch {
		summaries[i] = e.Summary()
	}
	if err := WriteSnapshot(p.SnapshotPath, summaries); err != nil {
		p.Log.WithError(err).Error("snapshot not written, aborting publish")
		return nil, err
	}
	p.Log.WithFields(logrus.Fields{"path": p.SnapshotPath, "hotels": len(batch)}).Info("snapshot written")

	if p.Mirror != nil {
		if err := p.Mirror.RecordSeries(run.ID, run.Owner, batch); err != nil {
			p.Log.WithError(err).Warn("local mirror not updated")
		}
	}

	if p.Remote == nil {
		p.Log.Warn("remote store not configured, skipping sync")
		return &Outcome{Path: model.RemoteSkipped}, nil
	}
	if len(batch) == 0 {
		p.Log.Warn("nothing to sync")
		return &Outcome{Path: model.RemoteSkipped}, nil
	}

	rows := bulkRows(batch, run.Owner, run.StartedAt)
	if err := p.Remote.BulkRefresh(ctx, rows); err != nil {
		metrics.RemoteSyncTotal.WithLabelValues(model.RemoteBulk, "failed").Inc()
		p.Log.WithError(err).Warn("bulk refresh failed, falling back to per-record sync")
		return p.fallback(ctx, batch, run), nil
	}
	metrics.RemoteSyncTotal.WithLabelValues(model.RemoteBulk, "success").Inc()
	p.Log.WithField("hotels", len(rows)).Info("bulk refresh succeeded")
	return &Outcome{Path: model.RemoteBulk, Attempted: len(rows), Succeeded: len(rows)}, nil
}

func (p *Publisher) fallback(ctx context.Context, batch []*model.ReconciledEntity, run Run) *Outcome {
	names := make([]string, len(batch))
	for i, e := range batch {
		names[i] = e.Name
	}

	if p.ClearMode == config.ClearBefore {
		if err := p.Remote.Clear(ctx, run.Owner, names); err != nil {
			p.Log.WithError(err).Warn("clear before insert failed, continuing with upserts")
		}
	}

	limit := rate.Inf
	if p.RecordDelay > 0 {
		limit = rate.Every(p.RecordDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	rows := dailyRows(batch, run.Owner, run.StartedAt)
	out := &Outcome{Path: model.RemoteFallback, Attempted: len(rows)}
	for i, row := range rows {
		log := p.Log.WithField("record", row.String())
		if err := limiter.Wait(ctx); err != nil {
			out.Failed += len(rows) - i
			log.WithError(err).Errorf("[%d/%d] fallback interrupted", i+1, len(rows))
			break
		}
		if err := p.Remote.Upsert(ctx, row); err != nil {
			out.Failed++
			metrics.FallbackRecordsTotal.WithLabelValues("failed").Inc()
			log.WithError(err).Warnf("[%d/%d] upsert failed", i+1, len(rows))
			continue
		}
		out.Succeeded++
		metrics.FallbackRecordsTotal.WithLabelValues("success").Inc()
		log.Infof("[%d/%d] upserted", i+1, len(rows))
	}

	status := "success"
	if out.Failed > 0 {
		status = "partial"
	}
	metrics.RemoteSyncTotal.WithLabelValues(model.RemoteFallback, status).Inc()

	if p.ClearMode == config.ClearPrune {
		if out.Failed > 0 {
			p.Log.WithField("failed", out.Failed).Warn("skipping prune after failed records")
		} else if err := p.Remote.Prune(ctx, run.Owner, names, run.StartedAt); err != nil {
			p.Log.WithError(err).Warn("prune of stale rows failed")
		}
	}

	p.Log.WithFields(logrus.Fields{"succeeded": out.Succeeded, "failed": out.Failed}).Info("fallback sync finished")
	return out
}
