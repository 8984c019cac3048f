package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/docwatch/internal/logger"
)

// DefaultSyncInterval is how often the daemon runs a sync pass.
const DefaultSyncInterval = 5 * time.Minute

// DaemonParams contains dependencies for creating a Daemon.
type DaemonParams struct {
	Runner  *Runner
	Cleaner *Cleaner
	Logger  logger.Logger

	// SyncInterval is the period between sync passes. Zero falls back to
	// the default.
	SyncInterval time.Duration
	// CleanupSchedule is a 5-field cron expression for the orphan cleanup
	// pass. Empty disables cleanup.
	CleanupSchedule string
	// SyncOptions are passed to every scheduled sync pass.
	SyncOptions Options
}

// Daemon runs sync and cleanup passes on a cron schedule.
type Daemon struct {
	runner  *Runner
	cleaner *Cleaner
	logger  logger.Logger

	cron            *cron.Cron
	syncInterval    time.Duration
	cleanupSchedule string
	syncOpts        Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDaemon creates a scheduler around a runner and cleaner.
func NewDaemon(p DaemonParams) *Daemon {
	if p.SyncInterval <= 0 {
		p.SyncInterval = DefaultSyncInterval
	}
	if p.Logger == nil {
		p.Logger = logger.NewNop()
	}

	// Standard 5-field expressions plus @every descriptors. A tick that
	// panics or outlives its interval must not take the daemon down or
	// stack up passes.
	cronLog := cronLogger{log: p.Logger}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &Daemon{
		runner:          p.Runner,
		cleaner:         p.Cleaner,
		logger:          p.Logger,
		cron:            c,
		syncInterval:    p.SyncInterval,
		cleanupSchedule: p.CleanupSchedule,
		syncOpts:        p.SyncOptions,
	}
}

// Start registers the schedule and starts the cron loop. An initial sync
// pass runs immediately; the first cron tick is one interval out.
func (d *Daemon) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	syncSpec := "@every " + d.syncInterval.String()
	if _, err := d.cron.AddFunc(syncSpec, d.syncTick); err != nil {
		return fmt.Errorf("schedule sync pass: %w", err)
	}

	if d.cleaner != nil && d.cleanupSchedule != "" {
		if _, err := d.cron.AddFunc(d.cleanupSchedule, d.cleanupTick); err != nil {
			return fmt.Errorf("schedule cleanup pass: %w", err)
		}
	}

	d.cron.Start()
	d.logger.Info("Sync daemon started",
		logger.String("sync_schedule", syncSpec),
		logger.String("cleanup_schedule", d.cleanupSchedule),
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.syncTick()
	}()

	return nil
}

// Stop halts the schedule and waits for any running pass to finish.
func (d *Daemon) Stop() error {
	d.logger.Info("Stopping sync daemon")

	if d.cancel != nil {
		d.cancel()
	}

	cronCtx := d.cron.Stop()
	<-cronCtx.Done()
	d.wg.Wait()

	d.logger.Info("Sync daemon stopped")
	return nil
}

func (d *Daemon) syncTick() {
	if d.ctx.Err() != nil {
		return
	}
	if _, err := d.runner.RunDueSyncs(d.ctx, d.syncOpts); err != nil {
		d.logger.Error("Scheduled sync pass failed", logger.Error(err))
	}
}

func (d *Daemon) cleanupTick() {
	if d.ctx.Err() != nil {
		return
	}
	if _, err := d.cleaner.Run(d.ctx, CleanupOptions{}); err != nil {
		d.logger.Error("Scheduled cleanup pass failed", logger.Error(err))
	}
}

// cronLogger adapts the structured logger to the cron.Logger interface.
// Cron's routine messages go to debug; only recovered panics and schedule
// errors surface at error level.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
