package pokemon

import (
	"context"

	"github.com/kantolabs/pokedex/internal/domain"
	"github.com/kantolabs/pokedex/internal/usecase/recommend"
)

// Upstream is the consumer interface for the PokeAPI client (ISP).
type Upstream interface {
	ListPage(ctx context.Context, limit, offset int) (int, []domain.PageEntry, error)
	TypeMembers(ctx context.Context, typeName string) ([]domain.PageEntry, error)
	Detail(ctx context.Context, nameOrID string) (domain.Detail, error)
	Summaries(ctx context.Context, urls []string) []domain.Summary
	SummariesByName(ctx context.Context, names []string) []domain.Summary
	EvolutionChain(ctx context.Context, nameOrID string) (*domain.EvolutionNode, error)
}

// Recommender is the consumer interface for the fitted model.
type Recommender interface {
	Recommend(name string, count int) (*recommend.Result, error)
	Search(query string) ([]string, error)
}
