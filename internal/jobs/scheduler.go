// Package jobs runs the periodic maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const defaultJobTimeout = 5 * time.Minute

// Func is one run of a job. The returned count is logged when non-zero.
type Func func(ctx context.Context) (int, error)

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewScheduler evaluates schedules in loc. A panicking job is logged and the
// next run still happens; overlapping runs of one job are skipped.
func NewScheduler(loc *time.Location, logger *zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: defaultJobTimeout,
		logger:  logger,
	}
}

// Add registers fn under spec. An empty spec leaves the job disabled.
func (s *Scheduler) Add(name, spec string, fn Func) error {
	if spec == "" {
		s.logger.Info().Str("job", name).Msg("Job disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.logger.Info().Str("job", name).Str("schedule", spec).Msg("Job scheduled")
	return nil
}

func (s *Scheduler) run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	n, err := fn(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("job", name).Dur("took", time.Since(started)).Msg("Job failed")
		return
	}
	if n > 0 {
		s.logger.Info().Str("job", name).Int("count", n).Dur("took", time.Since(started)).Msg("Job finished")
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("Timed out waiting for running jobs")
	}
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
