package auth

import (
	"context"
	"time"
)

// AuditSweepInterval is how often the retention sweep runs
var AuditSweepInterval = 24 * time.Hour

// AuditJanitor periodically deletes audit entries older than the retention
// window. Run once per process; stops when the context is cancelled.
type AuditJanitor struct {
	logs     AuditLogs
	interval time.Duration
	logger   Logger
}

func NewAuditJanitor(logs AuditLogs) *AuditJanitor {
	return &AuditJanitor{
		logs:     logs,
		interval: AuditSweepInterval,
		logger:   defLogger{},
	}
}

func (j *AuditJanitor) WithInterval(d time.Duration) *AuditJanitor {
	if d > 0 {
		j.interval = d
	}
	return j
}

func (j *AuditJanitor) WithLogger(l Logger) *AuditJanitor {
	if l != nil {
		j.logger = l
	}
	return j
}

// Start sweeps once immediately, then on every tick. A failed sweep is
// logged and retried on the next tick rather than stopping the janitor.
func (j *AuditJanitor) Start(ctx context.Context) {
	go func() {
		j.sweep(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	}()
}

func (j *AuditJanitor) sweep(ctx context.Context) {
	purged, err := j.logs.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("audit retention sweep failed: %s", err)
		return
	}

	if purged > 0 {
		j.logger.Info("audit retention sweep removed %d entries", purged)
	}
}
