package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"StaySentinel/internal/api"
	"StaySentinel/internal/collector"
	"StaySentinel/internal/config"
	"StaySentinel/internal/logging"
	"StaySentinel/internal/model"
	"StaySentinel/internal/notifier"
	"StaySentinel/internal/pipeline"
	"StaySentinel/internal/publisher"
	"StaySentinel/internal/recorder"
	"StaySentinel/internal/scheduler"
	"StaySentinel/internal/supabase"
)

const usage = `usage: sentinel <command> [flags]

commands:
  run     collect, forecast and publish once
  serve   start the HTTP trigger surface and optional schedule`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config validation: %v", err)
	}
	log := logging.New(cfg.LogLevel, os.Stdout)

	switch os.Args[1] {
	case "run":
		os.Exit(runOnce(cfg, log, os.Args[2:]))
	case "serve":
		os.Exit(serve(cfg, log))
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func runOnce(cfg *config.Config, log *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	owner := fs.String("user_id", cfg.OwnerID, "owner id stamped on every published record")
	locality := fs.String("locality", cfg.Collector.Locality, "locality to search")
	days := fs.Int("days", cfg.Collector.WindowDays, "number of consecutive check-in days")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, cleanup := buildPipeline(cfg, log)
	defer cleanup()

	_, err := p.Run(ctx, pipeline.Params{
		Owner:      *owner,
		Locality:   *locality,
		WindowDays: *days,
		Trigger:    model.TriggerCLI,
	}, log)
	if err != nil {
		return 1
	}
	return 0
}

func serve(cfg *config.Config, log *logrus.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, cleanup := buildPipeline(cfg, log)
	defer cleanup()

	sched := scheduler.NewScheduler(ctx, p, pipeline.Params{Owner: cfg.OwnerID}, p.Recorder, log)
	if cfg.Server.ScheduleCron != "" {
		if err := sched.Register(cfg.Server.ScheduleCron); err != nil {
			log.WithError(err).Error("register schedule")
			return 1
		}
		sched.Start()
		defer sched.Stop()
	}
	if tn, ok := p.Notifier.(*notifier.TelegramNotifier); ok {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.SetupRouter(cfg, p, p.Recorder),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping")
	case err := <-errCh:
		log.WithError(err).Error("http server failed")
		return 1
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	log.Info("StaySentinel stopped")
	return 0
}

// buildPipeline wires the real rendering substrate, remote store, recorder and notifier.
func buildPipeline(cfg *config.Config, log *logrus.Logger) (*pipeline.Pipeline, func()) {
	var remote publisher.RemoteStore
	if cfg.Supabase.Enabled() {
		client, err := supabase.NewClient(supabase.Config{
			URL:     cfg.Supabase.URL,
			APIKey:  cfg.Supabase.AnonKey,
			Timeout: cfg.Supabase.Timeout,
		})
		if err != nil {
			log.WithError(err).Warn("supabase client not created, remote sync disabled")
		} else {
			remote = publisher.NewSupabaseStore(client, cfg.Supabase.RPC, cfg.Supabase.Table)
		}
	} else {
		log.Warn("supabase url or key missing, remote sync disabled")
	}

	browsers := collector.ChromeFactory(collector.ChromeOptions{
		UserAgent: cfg.Collector.UserAgent,
		Proxy:     cfg.Proxy,
		Headless:  cfg.Collector.IsHeadless(),
	})
	p := pipeline.New(cfg, browsers, remote)

	cleanup := func() {}
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			p.Recorder = sr
			cleanup = func() {
				if err := sr.Close(); err != nil {
					log.WithError(err).Warn("close sqlite recorder")
				}
			}
		}
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		p.Notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	}
	return p, cleanup
}
