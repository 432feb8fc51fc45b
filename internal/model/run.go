package model

import "time"

// TriggerType indicates what started a run.
type TriggerType string

const (
	TriggerCLI      TriggerType = "CLI"
	TriggerHTTP     TriggerType = "HTTP"
	TriggerSchedule TriggerType = "SCHEDULE"
	TriggerCommand  TriggerType = "COMMAND"
)

// Remote sync paths reported in RunSummary.RemotePath.
const (
	RemoteBulk     = "bulk"
	RemoteFallback = "fallback"
	RemoteSkipped  = "skipped"
)

// RunSummary is the outcome of one pipeline pass.
type RunSummary struct {
	RunID             string      `json:"run_id"`
	Trigger           TriggerType `json:"trigger"`
	Owner             string      `json:"owner"`
	Locality          string      `json:"locality"`
	StartedAt         time.Time   `json:"started_at"`
	FinishedAt        time.Time   `json:"finished_at"`
	DaysRequested     int         `json:"days_requested"`
	DaysCollected     int         `json:"days_collected"`
	DaysSkipped       int         `json:"days_skipped"`
	EntitiesSeen      int         `json:"entities_seen"`
	EntitiesDropped   int         `json:"entities_dropped"`
	EntitiesMalformed int         `json:"entities_malformed"`
	EntitiesPublished int         `json:"entities_published"`
	CoercionFailures  int         `json:"coercion_failures"`
	RemotePath        string      `json:"remote_path"`
	RecordsAttempted  int         `json:"records_attempted"`
	RecordsFailed     int         `json:"records_failed"`
	Error             string      `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r *RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
