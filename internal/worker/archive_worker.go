package worker

import (
	"context"
	"fmt"
	"time"

	"taskwise/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSchedule = "0 * * * *"

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Sweeper archives Done tasks past retention and reports how many moved.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type ArchiveWorker struct {
	sweeper      Sweeper
	schedule     cron.Schedule
	startupDelay time.Duration
	now          func() time.Time
}

// NewArchiveWorker parses schedule, falling back to DefaultSchedule when it
// is empty. A positive startupDelay runs one sweep shortly after start.
func NewArchiveWorker(sweeper Sweeper, schedule string, startupDelay time.Duration) (*ArchiveWorker, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse archive schedule %q: %w", schedule, err)
	}
	return &ArchiveWorker{
		sweeper:      sweeper,
		schedule:     sched,
		startupDelay: startupDelay,
		now:          time.Now,
	}, nil
}

// next returns the wait until the next scheduled sweep.
func (w *ArchiveWorker) next() time.Duration {
	now := w.now()
	d := w.schedule.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (w *ArchiveWorker) Start(ctx context.Context) {
	if w.startupDelay > 0 {
		select {
		case <-time.After(w.startupDelay):
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Archive sweep stopping")
			return
		}
	}

	timer := time.NewTimer(w.next())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			logger.Info("Worker: Scheduled archive sweep", zap.Time("started_at", w.now()))
			w.Check(ctx)
			timer.Reset(w.next())
		case <-ctx.Done():
			logger.Info("Worker: Archive sweep stopping")
			return
		}
	}
}

// Check runs one sweep and returns the number of archived tasks.
func (w *ArchiveWorker) Check(ctx context.Context) int {
	start := time.Now()

	archived, err := w.sweeper.Sweep(ctx)
	if err != nil {
		logger.Warn("Worker: Archive sweep failed", zap.Error(err))
		return 0
	}

	logger.Info("Worker: Archive sweep finished",
		zap.Duration("ms", time.Since(start)),
		zap.Int("archived", archived))
	return archived
}
