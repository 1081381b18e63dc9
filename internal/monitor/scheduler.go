package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"speedlog/internal/models"
)

// Scheduler repeats runs on a cron schedule. A run that is still in progress
// when the next one is due causes that next one to be skipped.
type Scheduler struct {
	runner *Runner
	cron   *cron.Cron
	job    cron.Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler for spec (standard cron or @every)
func NewScheduler(runner *Runner, spec string) (*Scheduler, error) {
	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner: runner,
		cron:   c,
		ctx:    ctx,
		cancel: cancel,
	}

	id, err := c.AddFunc(spec, s.run)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s.job = c.Entry(id).WrappedJob
	return s, nil
}

// Start runs once immediately, then on schedule
func (s *Scheduler) Start() {
	log.Info("Starting scheduler")

	// Immediate first run goes through the same skip-if-running wrapper
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()

	s.cron.Start()
}

// Stop cancels the in-flight run and stops scheduling new ones
func (s *Scheduler) Stop() {
	log.Info("Stopping scheduler...")
	s.cancel()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.cron.Stop().Done()
	}()
}

// Wait blocks until all runs finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	if _, err := s.runner.RunOnce(s.ctx); err != nil {
		if models.IsContextError(err) {
			log.WithError(err).Info("Scheduled run cancelled")
			return
		}
		log.WithError(err).Error("Scheduled run failed")
	}
}
