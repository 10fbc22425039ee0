package health

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means the store is up but some embedding provider is not.
	Degraded Status = "degraded"
	// Unhealthy means the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// StoreCheck is the report key of the backing store.
const StoreCheck = "store"

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	providers map[string]ProviderChecker
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Service. providers maps chain names to checkers and may be empty.
func New(store StorePinger, providers map[string]ProviderChecker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, providers: providers, timeout: DefaultCheckTimeout, logger: logger}
}

// Check pings the store and every provider.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.providers)+1)
	status := Healthy

	if err := s.run(ctx, s.store.Ping); err != nil {
		s.logger.Warn("store health check failed", zap.Error(err))
		checks[StoreCheck] = CheckError
		status = Unhealthy
	} else {
		checks[StoreCheck] = CheckOK
	}

	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		key := "embedding:" + name
		if err := s.run(ctx, s.providers[name].HealthCheck); err != nil {
			s.logger.Warn("provider health check failed", zap.String("provider", name), zap.Error(err))
			checks[key] = CheckError
			if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[key] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return check(ctx)
}
