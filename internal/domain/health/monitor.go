package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/domain/service"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// DefaultSchedule runs a pass every minute
const DefaultSchedule = "@every 1m"

// Check is the outcome of probing one service
type Check struct {
	Service  string        `json:"service"`
	Healthy  bool          `json:"healthy"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Monitor runs health probes on a cron schedule
type Monitor struct {
	registry *service.Registry
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	timeout  time.Duration
	cron     *cron.Cron

	mu   sync.Mutex
	last []Check
}

// NewMonitor creates a monitor; timeout bounds each probe
func NewMonitor(registry *service.Registry, logger *zap.Logger, schedule string, timeout time.Duration) (*Monitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	m := &Monitor{
		registry: registry,
		logger:   logger,
		timeout:  timeout,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}

	if _, err := m.cron.AddFunc(schedule, func() {
		m.CheckNow(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid health schedule %q: %w", schedule, err)
	}
	return m, nil
}

// WithMetrics records probe outcomes
func (m *Monitor) WithMetrics(metrics *monitoring.Metrics) *Monitor {
	m.metrics = metrics
	return m
}

// Start starts the scheduler
func (m *Monitor) Start() {
	m.cron.Start()
	m.logger.Info("Health monitor started", zap.Int("jobs", len(m.cron.Entries())))
}

// Stop stops the scheduler and waits for a running pass
func (m *Monitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

// Last returns the checks from the most recent pass
func (m *Monitor) Last() []Check {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Check(nil), m.last...)
}

// CheckNow runs one pass synchronously
func (m *Monitor) CheckNow(ctx context.Context) []Check {
	var checks []Check

	for _, desc := range m.registry.ListByLocation(types.LocationServer) {
		if desc.Status == types.StatusInactive {
			continue
		}
		handler, ok := m.registry.Handler(desc.Name)
		if !ok {
			continue
		}
		checker, ok := handler.(service.HealthChecker)
		if !ok {
			continue
		}

		check := m.probe(ctx, desc.Name, checker)
		checks = append(checks, check)
		m.apply(desc, check)
	}

	m.mu.Lock()
	m.last = checks
	m.mu.Unlock()
	return checks
}

func (m *Monitor) probe(ctx context.Context, name string, checker service.HealthChecker) (check Check) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	check.Service = name
	defer func() {
		if p := recover(); p != nil {
			check.Healthy = false
			check.Error = fmt.Sprintf("health probe panic: %v", p)
		}
		check.Duration = time.Since(start)
		if m.metrics != nil {
			m.metrics.RecordHealthCheck(name, check.Healthy)
		}
	}()

	if err := checker.Health(ctx); err != nil {
		check.Error = err.Error()
		return check
	}
	check.Healthy = true
	return check
}

func (m *Monitor) apply(desc types.ServiceDescriptor, check Check) {
	switch {
	case !check.Healthy && (desc.Status != types.StatusError || desc.ErrorMessage != check.Error):
		m.logger.Warn("Service unhealthy", zap.String("service", desc.Name), zap.String("error", check.Error))
		m.update(desc.Name, types.StatusError, check.Error)
	case check.Healthy && desc.Status == types.StatusError:
		m.logger.Info("Service recovered", zap.String("service", desc.Name))
		m.update(desc.Name, types.StatusActive, "")
	}
}

func (m *Monitor) update(name string, status types.Status, msg string) {
	// The service can disappear between listing and updating during shutdown.
	if err := m.registry.UpdateStatus(name, status, msg); err != nil {
		m.logger.Debug("Status update skipped", zap.String("service", name), zap.Error(err))
	}
}
