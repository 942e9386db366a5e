package dag

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/flightledger/core/pkg/logger"
)

// Scheduler triggers a Runner on a recurring cron schedule. It is optional
// ambient infrastructure: a deployment that drives the close pipeline
// manually or from an external orchestrator never constructs one.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *logger.Logger
}

// NewScheduler parses schedule as a standard five-field cron expression and
// registers runner.Run against it. It does not start the schedule; call
// Start for that.
func NewScheduler(schedule string, runner *Runner, log *logger.Logger) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, runner: runner, log: log.Named("dag_scheduler")}
	if _, err := c.AddFunc(schedule, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for any in-flight run to finish, then halts the schedule.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce() {
	result, err := s.runner.Run(context.Background())
	if err != nil {
		s.log.Errorw("scheduled run failed to start", "error", err)
		return
	}
	s.log.Infow("scheduled run complete", "run_id", result.RunID, "status", result.Status)
}
