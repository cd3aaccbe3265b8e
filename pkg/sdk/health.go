package pieces

import "context"

// HealthStatus is the aggregated state of the store and its providers.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // store, vector_index, embedding, generation → "ok"/"error"
}

// Health checks every component. A store that has not been initialized gets one Init attempt.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}
