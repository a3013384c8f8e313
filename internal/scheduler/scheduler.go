// Package scheduler drives TIME_BASED workflow steps on a cron cadence.
//
// Each tick asks the engine to dispatch and advance every in-progress
// instance currently sitting on a TIME_BASED step. Per-step delays are an
// external concern; the cadence is one configured cron expression.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTickTimeout bounds one cron tick, including dispatch I/O.
const DefaultTickTimeout = 2 * time.Minute

// Ticker is the engine-side contract the scheduler drives.
type Ticker interface {
	TickTimeBased(ctx context.Context) (int, error)
}

// Scheduler runs the time-based tick on a cron expression.
type Scheduler struct {
	cron   *cron.Cron
	ticker Ticker
}

// New creates a stopped scheduler. Standard 5-field cron expressions with
// panic recovery, as the jobs run on the cron goroutine.
func New(ticker Ticker) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{cron: c, ticker: ticker}
}

// Start registers the tick under expr and starts the cron loop.
func (s *Scheduler) Start(expr string) error {
	if _, err := s.cron.AddFunc(expr, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("Scheduler.Start: time-based tick scheduled", "expr", expr)
	return nil
}

// AddJob schedules an extra task using the provided cron expression.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTickTimeout)
	defer cancel()
	advanced, err := s.ticker.TickTimeBased(ctx)
	if err != nil {
		slog.Error("Scheduler.tick: time-based tick failed", "error", err)
		return
	}
	if advanced > 0 {
		slog.Info("Scheduler.tick: advanced time-based steps", "count", advanced)
	}
}
