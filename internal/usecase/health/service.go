package health

import (
	"context"

	"github.com/kantolabs/pokedex/internal/usecase/recommend"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status           Status
	Checks           map[string]CheckResult
	RecommenderState string
}

// Service coordinates health checks.
type Service struct {
	cache       CachePinger
	recommender RecommenderStatus
}

// New creates a Service. cache can be nil.
func New(cache CachePinger, recommender RecommenderStatus) *Service {
	return &Service{cache: cache, recommender: recommender}
}

// Check runs health checks against all components. The recommender counts
// as healthy only once its one-time fit has completed.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	state := s.recommender.State()
	if state == recommend.Ready {
		checks["recommender"] = CheckOK
	} else {
		checks["recommender"] = CheckError
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, RecommenderState: state.String()}
}
