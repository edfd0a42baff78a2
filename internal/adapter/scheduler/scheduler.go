// Package scheduler fires the recurring audit run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/niksmo/catalog-audit/internal/core/port"
	"github.com/niksmo/catalog-audit/internal/core/service"
	"github.com/robfig/cron/v3"
)

const DefaultSpec = "0 9 * * *"

type Config struct {
	// Spec is a five field cron expression or a descriptor like @daily.
	Spec       string
	Timezone   string
	RunOnStart bool
}

type Scheduler struct {
	cron       *cron.Cron
	runner     port.ScheduledRunner
	loc        *time.Location
	runOnStart bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(runner port.ScheduledRunner, cfg Config) (*Scheduler, error) {
	const op = "scheduler.New"

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		loc = l
	}

	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSpec
	}

	logger := cronLogger{slog.With("op", "cron")}
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:       c,
		runner:     runner,
		loc:        loc,
		runOnStart: cfg.RunOnStart,
		ctx:        ctx,
		cancel:     cancel,
	}

	if _, err := c.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("%s: invalid spec %q: %w", op, spec, err)
	}
	return s, nil
}

func (s *Scheduler) Run() {
	const op = "Scheduler.Run"

	s.cron.Start()
	slog.Info("scheduler is running", "op", op, "next", s.Next())

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run()
		}()
	}
}

// Next returns the time of the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if next := entries[0].Next; !next.IsZero() {
		return next
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}

// Close cancels a run in flight and waits for it until ctx is done.
func (s *Scheduler) Close(ctx context.Context) {
	const op = "Scheduler.Close"
	log := slog.With("op", op)

	log.Info("closing scheduler...")
	s.cancel()

	stopped := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("scheduler is closed")
	case <-ctx.Done():
		log.Error("scheduled run did not stop in time", "err", ctx.Err())
	}
}

func (s *Scheduler) run() {
	const op = "Scheduler.run"
	log := slog.With("op", op)

	err := s.runner.RunScheduled(s.ctx)
	switch {
	case err == nil:
		log.Info("scheduled run finished")
	case errors.Is(err, service.ErrRunInProgress):
		log.Warn("scheduled run skipped, a check is already running")
	case errors.Is(err, context.Canceled):
		log.Info("scheduled run canceled")
	default:
		log.Error("scheduled run failed", "err", err)
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "err", err)...)
}
