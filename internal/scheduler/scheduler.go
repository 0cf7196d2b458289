// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper removes expired archives and reports how many it removed.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New schedules sweeper on schedule (standard cron or "@every 10m"). Overlapping
// runs are skipped.
func New(schedule string, sweeper Sweeper, timeout time.Duration, log zerolog.Logger) (*Scheduler, error) {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := sweeper.SweepExpired(ctx)
		if err != nil {
			log.Error().Err(err).Msg("export sweep failed")
			return
		}
		log.Debug().Int("removed", n).Msg("export sweep done")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule export sweep %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop prevents new runs and waits for a running job until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
