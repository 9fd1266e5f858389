package engine

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler drives periodic evaluation cycles. One cycle at most runs at
// a time; cron's built-in skip policy drops a tick that arrives while the
// previous cycle is still evaluating rather than stacking cycles.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *log.Logger
}

// NewScheduler registers the runner on the given cron spec.
func NewScheduler(spec string, runner *Runner, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.Default()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{cron: c, runner: runner, logger: logger}

	_, err := c.AddFunc(spec, func() {
		if err := runner.RunCycle(context.Background()); err != nil {
			logger.Printf("[ERROR] scheduled cycle: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduling.
func (s *Scheduler) Start() {
	s.logger.Printf("[SCHED] started")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Printf("[SCHED] stopped")
}
