package recommend

import (
	"context"

	"github.com/kantolabs/pokedex/internal/domain"
)

// Fetcher is the consumer interface for the upstream data source (ISP).
type Fetcher interface {
	ListPage(ctx context.Context, limit, offset int) (int, []domain.PageEntry, error)
	BaseStats(ctx context.Context, url string) (domain.BaseStats, error)
}

// State is the lifecycle of the one-shot model fit.
type State int32

const (
	// Uninitialized means Initialize has never been called.
	Uninitialized State = iota
	// Initializing means the fetch+fit is in flight.
	Initializing
	// Ready means a fit completed successfully; never unset.
	Ready
	// Failed means the last Initialize attempt failed; a retry is allowed.
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
