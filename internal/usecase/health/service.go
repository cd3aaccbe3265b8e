package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a model provider is failing; stored pieces are still reachable.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector index or the piece store is unavailable.
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

// Component names in a Report.
const (
	ComponentStore       = "store"
	ComponentVectorIndex = "vector_index"
	ComponentEmbedding   = "embedding"
	ComponentGeneration  = "generation"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	store      StoreInitializer
	index      IndexPinger
	embedding  ProviderChecker
	generation ProviderChecker
}

// New creates a Service. Any checker may be nil to skip that component.
func New(store StoreInitializer, index IndexPinger, embedding, generation ProviderChecker) *Service {
	return &Service{store: store, index: index, embedding: embedding, generation: generation}
}

// Check runs health checks against all components. A store that is not yet ready
// gets one initialization attempt so a recovered index turns the report healthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	critical := false

	if s.store != nil {
		if s.store.Ready() || s.store.Init(ctx) == nil {
			checks[ComponentStore] = CheckOK
		} else {
			checks[ComponentStore] = CheckError
			critical = true
		}
	}
	if s.index != nil {
		checks[ComponentVectorIndex] = result(s.index.Ping(ctx))
		critical = critical || checks[ComponentVectorIndex] == CheckError
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx))
	}
	if s.generation != nil {
		checks[ComponentGeneration] = result(s.generation.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if critical {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
