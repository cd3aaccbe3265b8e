package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an embedding or generation provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// StoreInitializer reports and advances piece store initialization.
type StoreInitializer interface {
	Init(ctx context.Context) error
	Ready() bool
}
