package health

import (
	"context"

	"github.com/kantolabs/pokedex/internal/usecase/recommend"
)

// CachePinger checks cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// RecommenderStatus exposes the model lifecycle state.
type RecommenderStatus interface {
	State() recommend.State
}
