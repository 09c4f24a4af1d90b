package scheduler

import (
	"context"
	"sync"

	"datasync/internal/providers"
	"datasync/internal/scheduler/interfaces"
	"datasync/internal/services"
	"datasync/internal/structures"
	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
)

// Scheduler runs the pipeline every schedule.interval. At most one run is
// active at a time: a tick or trigger arriving during a run is dropped.
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	pipeline services.PipelineServiceInterface
	cron     *gron.Cron
	running  atomic.Bool
	wg       sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

func (s *Scheduler) Init(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.stopped = false
	s.mu.Unlock()

	interval := s.config.Schedule.Interval
	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(interval), func() {
		if !s.Trigger() && s.running.Load() {
			s.logger.Warnf(providers.TypeApp, "Previous pipeline run still active, skipping scheduled run")
		}
	})
	s.cron.Start()
	s.logger.Infof(providers.TypeApp, "Scheduler started, pipeline runs every %s", interval)

	if s.config.Schedule.RunOnStart {
		s.Trigger()
	}
}

// Trigger starts a pipeline run in the background. It returns false when a
// run is already active or Stop has been called.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	if s.stopped || !s.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return false
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		report := s.pipeline.Run(ctx)
		if report.Failed() {
			s.logger.Warnf(providers.TypeApp, "Pipeline run %s had %d failed categories", report.ID, len(report.Failures()))
		}
	}()
	return true
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stop halts the ticker, cancels an active run and waits for it to return.
// Triggers are refused from then on until the next Init.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func NewScheduler(config *structures.Config, logger providers.Logger, pipeline services.PipelineServiceInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		pipeline: pipeline,
	}
}
