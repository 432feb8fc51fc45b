package recorder

import "StaySentinel/internal/model"

// Recorder persists run history and a local copy of the published series.
type Recorder interface {
	RecordRun(run *model.RunSummary) error
	RecordSeries(runID, owner string, batch []*model.ReconciledEntity) error
	RecentRuns(limit int) ([]model.RunSummary, error)
	Close() error
}
