package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"StaySentinel/internal/model"
	"StaySentinel/internal/notifier"
	"StaySentinel/internal/pipeline"
	"StaySentinel/internal/recorder"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context, params pipeline.Params, log logrus.FieldLogger) (*pipeline.Result, error)
	Running() bool
}

// Scheduler runs the pipeline on a cron schedule and answers operator commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Params   pipeline.Params
	Recorder recorder.Recorder
	Log      logrus.FieldLogger
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. The cron spec includes a seconds field.
func NewScheduler(ctx context.Context, runner Runner, params pipeline.Params, rec recorder.Recorder, log logrus.FieldLogger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	params.Trigger = model.TriggerSchedule
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Params:   params,
		Recorder: rec,
		Log:      log,
		Ctx:      ctx,
	}
}

// Register adds the periodic run.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.scheduledRun); err != nil {
		return fmt.Errorf("register scheduled run: %w", err)
	}
	s.Log.WithField("cron", spec).Info("scheduled run registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunNow executes one pass immediately with the scheduler's parameters.
func (s *Scheduler) RunNow() (*pipeline.Result, error) {
	return s.Runner.Run(s.Ctx, s.Params, s.Log)
}

func (s *Scheduler) scheduledRun() {
	s.Log.Info("running scheduled pass")
	if _, err := s.RunNow(); err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			s.Log.Warn("previous run still in progress, skipping this tick")
			return
		}
		s.Log.WithError(err).Error("scheduled run failed")
	}
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	name := ""
	if fields := strings.Fields(command); len(fields) > 0 {
		name = strings.ToLower(fields[0])
	}
	switch name {
	case "/run", "/actualizar":
		if s.Runner.Running() {
			return "Ya hay una ejecución en curso"
		}
		go func() {
			params := s.Params
			params.Trigger = model.TriggerCommand
			if _, err := s.Runner.Run(s.Ctx, params, s.Log); err != nil {
				s.Log.WithError(err).Error("command run failed")
			}
		}()
		return "Ejecución iniciada"
	case "/runs", "/historial":
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			s.Log.WithError(err).Warn("load recent runs")
			return "No se pudo leer el historial"
		}
		return notifier.FormatRecentRuns(runs)
	case "/status", "/estado":
		if s.Runner.Running() {
			return "Ejecución en curso"
		}
		return "Sin ejecución en curso"
	default:
		return "Comandos disponibles:\n• /run\n• /runs\n• /status"
	}
}
