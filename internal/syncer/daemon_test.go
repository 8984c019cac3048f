package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonesrussell/docwatch/internal/logger"
	"github.com/jonesrussell/docwatch/internal/syncer"
)

func TestDaemon_RunsInitialSyncPass(t *testing.T) {
	t.Parallel()

	m := newRunnerMocks()
	runner := newTestRunner(t, m)

	daemon := syncer.NewDaemon(syncer.DaemonParams{
		Runner: runner,
		Logger: logger.NewNop(),
		// One tick an hour out; only the startup pass should fire here.
		SyncInterval: time.Hour,
	})

	if err := daemon.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.queues.getListCalls() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := daemon.Stop(); err != nil {
		t.Fatalf("stop daemon: %v", err)
	}

	if m.queues.getListCalls() == 0 {
		t.Error("expected the startup sync pass to run")
	}
}

func TestDaemon_InvalidCleanupSchedule(t *testing.T) {
	t.Parallel()

	m := newRunnerMocks()
	runner := newTestRunner(t, m)
	cleaner := syncer.NewCleaner(&mockWalker{}, &mockLister{}, logger.NewNop())

	daemon := syncer.NewDaemon(syncer.DaemonParams{
		Runner:          runner,
		Cleaner:         cleaner,
		Logger:          logger.NewNop(),
		CleanupSchedule: "not a schedule",
	})

	err := daemon.Start(context.Background())
	if err == nil {
		_ = daemon.Stop()
		t.Fatal("expected schedule parse error, got nil")
	}
}
