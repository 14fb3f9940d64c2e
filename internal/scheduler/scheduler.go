package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-flow/internal/store"
	"github.com/i474232898/weather-flow/internal/weather"
)

// Runner executes one flow run.
type Runner interface {
	Name() string
	Run(ctx context.Context, params weather.Params) (store.Run, error)
}

// Scheduler periodically runs a flow, the way a deployment schedule would.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	params    weather.Params
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. Each run is bounded by timeout (0 = none).
func New(runner Runner, params weather.Params, interval, timeout time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		params:    params.Clone(),
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run starts immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	// A run must finish before the next one starts.
	s.scheduler.SingletonModeAll()

	_, err := s.scheduler.Every(s.interval).Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler: %s every %s", s.runner.Name(), s.interval)
	return nil
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	run, err := s.runner.Run(ctx, s.params)
	if err != nil {
		log.Printf("ERROR: scheduler: run %s of %s failed: %v", run.Name, s.runner.Name(), err)
		return
	}
	log.Printf("INFO: scheduler: run %s of %s completed", run.Name, s.runner.Name())
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
