// Package scheduler reruns the content-improvement pipeline on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/felixgeelhaar/cohort/internal/config"
	"github.com/felixgeelhaar/cohort/internal/observe"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
)

const defaultPollInterval = 30 * time.Second

// Runner executes a pipeline over a topic list.
type Runner interface {
	RunPipeline(ctx context.Context, topics []orchestrate.Topic) (orchestrate.PipelineResult, error)
}

type Scheduler struct {
	runner       Runner
	obs          *observe.Observer
	pollInterval time.Duration
	reloadCh     chan struct{}

	mu   sync.Mutex
	cfg  config.ScheduleConfig
	next time.Time
	runs int
}

// NextRun returns the first time after t matching expr.
func NextRun(expr string, after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, after, false)
}

func New(runner Runner, cfg config.ScheduleConfig, obs *observe.Observer) (*Scheduler, error) {
	if obs == nil {
		obs = observe.Discard()
	}
	s := &Scheduler{
		runner:       runner,
		obs:          obs,
		pollInterval: defaultPollInterval,
		reloadCh:     make(chan struct{}, 1),
	}
	if err := s.apply(cfg, time.Now()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) apply(cfg config.ScheduleConfig, now time.Time) error {
	if !gronx.New().IsValid(cfg.Cron) {
		return fmt.Errorf("invalid cron expression %q", cfg.Cron)
	}
	if len(cfg.Weeks) == 0 {
		return fmt.Errorf("schedule has no weeks")
	}
	next, err := NextRun(cfg.Cron, now)
	if err != nil {
		return fmt.Errorf("next run for %q: %w", cfg.Cron, err)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.next = next
	s.mu.Unlock()
	return nil
}

// UpdateConfig swaps the schedule and signals the run loop to recompute
// its next run.
func (s *Scheduler) UpdateConfig(cfg config.ScheduleConfig) error {
	if err := s.apply(cfg, time.Now()); err != nil {
		return err
	}
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
	return nil
}

// Next returns the next planned run.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Runs returns how many pipeline runs the scheduler has started.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.obs.Log().Info().Str("cron", s.config().Cron).Str("next", s.Next().Format(time.RFC3339)).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.obs.Log().Info().Msg("scheduler stopped")
			return
		case <-s.reloadCh:
			ticker.Reset(s.pollInterval)
			s.obs.Log().Info().Str("next", s.Next().Format(time.RFC3339)).Msg("scheduler config reloaded")
		case now := <-ticker.C:
			if s.due(now) {
				s.RunOnce(ctx)
			}
		}
	}
}

func (s *Scheduler) config() config.ScheduleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Scheduler) due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.next)
}

// RunOnce runs the pipeline over the configured weeks and plans the next
// run.
func (s *Scheduler) RunOnce(ctx context.Context) (orchestrate.PipelineResult, error) {
	cfg := s.config()
	topics := orchestrate.WeekTopics(cfg.Weeks)

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	s.obs.Log().Info().Int("topics", len(topics)).Msg("scheduled pipeline started")
	result, err := s.runner.RunPipeline(ctx, topics)
	if err != nil {
		s.obs.Log().Error().Err(err).Msg("scheduled pipeline failed")
	} else {
		s.obs.Log().Info().Str("run_id", result.RunID).Int("failed", result.Failed()).Msg("scheduled pipeline finished")
	}

	if next, nerr := NextRun(cfg.Cron, time.Now()); nerr == nil {
		s.mu.Lock()
		s.next = next
		s.mu.Unlock()
	}
	return result, err
}
