// Package scheduler runs periodic maintenance jobs with gocron. The only job
// today is the WhatsApp connection watchdog.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Connection is the part of the WhatsApp client the watchdog inspects.
type Connection interface {
	IsPaired() bool
	IsConnected() bool
	Reconnect() error
}

// Config holds the scheduler configuration.
type Config struct {
	Connection Connection
	Interval   time.Duration
	Logger     *slog.Logger
}

// Scheduler owns the gocron scheduler and the watchdog job.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger
}

// New creates a new Scheduler. The watchdog is registered but not started.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Connection == nil {
		return nil, fmt.Errorf("scheduler: connection is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %s", cfg.Interval)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	s := &Scheduler{cron: cron, cfg: cfg, logger: logger}
	if _, err := cron.NewJob(
		gocron.DurationJob(cfg.Interval),
		gocron.NewTask(s.Check),
		gocron.WithName("whatsapp-watchdog"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("scheduling watchdog: %w", err)
	}
	return s, nil
}

// Start starts the gocron scheduler.
func (s *Scheduler) Start(_ context.Context) {
	s.cron.Start()
	s.logger.Info("connection watchdog started", "interval", s.cfg.Interval)
}

// Stop shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// Check reconnects a paired client whose websocket has dropped. Unpaired
// clients are left alone until the QR code is scanned.
func (s *Scheduler) Check() {
	conn := s.cfg.Connection
	if !conn.IsPaired() || conn.IsConnected() {
		return
	}
	s.logger.Warn("whatsapp connection is down, reconnecting")
	if err := conn.Reconnect(); err != nil {
		s.logger.Error("whatsapp reconnect failed", "error", err)
		return
	}
	s.logger.Info("whatsapp reconnect issued")
}
