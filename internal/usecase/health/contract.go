package health

import "context"

// StorePinger checks backing store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks one embedding provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
