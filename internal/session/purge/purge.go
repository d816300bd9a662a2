// Package purge deletes dead sessions on a cron schedule.
package purge

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRetention keeps expired and revoked sessions for a day so recent logouts stay inspectable.
const DefaultRetention = 24 * time.Hour

var purgedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "gym",
	Subsystem: "sessions",
	Name:      "purged_total",
	Help:      "Sessions deleted by the purge job.",
})

// Store is the session store method the job uses.
type Store interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job is a cron.Job that deletes sessions expired or revoked more than Retention ago.
type Job struct {
	store     Store
	retention time.Duration
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time
}

var _ cron.Job = (*Job)(nil)

// NewJob returns a purge Job. retention <= 0 uses DefaultRetention.
func NewJob(store Store, retention time.Duration, log *zap.Logger) *Job {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{store: store, retention: retention, timeout: time.Minute, log: log, now: time.Now}
}

// Run implements cron.Job.
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.Purge(ctx); err != nil {
		j.log.Error("session purge failed", zap.Error(err))
	}
}

// Purge deletes dead sessions older than the retention and returns how many were removed.
func (j *Job) Purge(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	n, err := j.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	purgedCounter.Add(float64(n))
	j.log.Info("purged sessions", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// CronLogger adapts a zap logger to cron.Logger.
func CronLogger(log *zap.Logger) cron.Logger {
	return cronLogger{log.Sugar()}
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Schedule registers job on a new cron scheduler with overlap protection and panic recovery.
// The caller starts and stops the returned scheduler.
func Schedule(spec string, job cron.Job, log *zap.Logger) (*cron.Cron, error) {
	cl := CronLogger(log)
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, err
	}
	return c, nil
}
