package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casbridge/casbridge/internal/logging"
)

func TestManager_RegisterRunsImmediately(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var runs atomic.Int32
	m.Register("sweep", time.Hour, func(context.Context, logging.InternalLogger) error {
		runs.Add(1)
		return nil
	})

	// the first run happens before the first tick
	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("task did not run immediately after registration")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManager_ZeroIntervalNeverSchedules(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var runs atomic.Int32
	m.Register("sweep", 0, func(context.Context, logging.InternalLogger) error {
		runs.Add(1)
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("task ran %d times without interval, want 0", got)
	}

	// manual trigger still works
	if err := m.TriggerWait("sweep"); err != nil {
		t.Fatalf("TriggerWait() error = %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Errorf("task ran %d times after trigger, want 1", got)
	}
}

func TestManager_TriggerUnknownTask(t *testing.T) {
	m := NewManager()
	if err := m.Trigger("nope"); err == nil {
		t.Error("Trigger() expected error for unknown task")
	}
}

func TestManager_StatusAndLogs(t *testing.T) {
	m := NewManager()

	m.Register("sweep", 0, func(_ context.Context, logger logging.InternalLogger) error {
		logger.Info("removed %d entries", 3)
		return nil
	})
	if err := m.TriggerWait("sweep"); err != nil {
		t.Fatalf("TriggerWait() error = %v", err)
	}

	statuses := m.ListStatus()
	if len(statuses) != 1 {
		t.Fatalf("ListStatus() = %d entries, want 1", len(statuses))
	}
	if statuses[0].LastResult != "success" {
		t.Errorf("LastResult = %q, want %q", statuses[0].LastResult, "success")
	}

	logs, err := m.GetLogs("sweep")
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	if len(logs) == 0 {
		t.Error("GetLogs() returned no entries")
	}
}
