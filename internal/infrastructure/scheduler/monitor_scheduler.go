package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/leadscore/backend/internal/application/monitor"
	"go.uber.org/zap"
)

// MonitorSchedulerConfig holds configuration for the periodic monitor runs
type MonitorSchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// DefaultMonitorSchedulerConfig returns default configuration
func DefaultMonitorSchedulerConfig() MonitorSchedulerConfig {
	return MonitorSchedulerConfig{
		Enabled:  true,
		Interval: 1 * time.Hour,
	}
}

// MonitorScheduler runs the performance monitor for every registered
// tool on a fixed interval. A tool whose check is already running is
// skipped until the next tick.
type MonitorScheduler struct {
	monitor *monitor.Monitor
	tools   func() []string
	config  MonitorSchedulerConfig
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitorScheduler creates a monitor scheduler. tools yields the
// tool names to check each tick.
func NewMonitorScheduler(m *monitor.Monitor, tools func() []string, config MonitorSchedulerConfig, logger *zap.Logger) *MonitorScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultMonitorSchedulerConfig().Interval
	}
	return &MonitorScheduler{
		monitor: m,
		tools:   tools,
		config:  config,
		logger:  logger,
	}
}

// Start launches the periodic check loop
func (s *MonitorScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("monitor scheduler disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("monitor scheduler started",
		zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop stops the scheduler
func (s *MonitorScheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("monitor scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MonitorScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runChecks(ctx)
		}
	}
}

func (s *MonitorScheduler) runChecks(ctx context.Context) {
	for _, tool := range s.tools() {
		if _, err := s.monitor.CheckRulePerformance(ctx, tool); err != nil {
			s.logger.Warn("scheduled performance check failed",
				zap.String("tool", tool),
				zap.Error(err))
		}
	}
}
