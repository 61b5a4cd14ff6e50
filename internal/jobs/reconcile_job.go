package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postpilot/internal/service"
)

// ReconcileJob periodically purges past-due schedules and drops schedules
// whose upload-post job no longer exists.
type ReconcileJob struct {
	s       service.ScheduleService
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

func NewReconcileJob(s service.ScheduleService, timeout time.Duration) *ReconcileJob {
	return &ReconcileJob{s: s, timeout: timeout}
}

// Run is the cron entry point. Overlapping runs are skipped.
func (j *ReconcileJob) Run() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		slog.Info("reconcile already running, skipping")
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	removed, err := j.s.Reconcile(ctx)
	if err != nil {
		slog.Error("reconcile failed", "error", err)
		return
	}
	slog.Info("reconcile finished", "removed", removed, "took", time.Since(start))
}
