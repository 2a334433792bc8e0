// Package pokemon proxies and reshapes upstream Pokémon data, and enriches
// locally computed search and recommendation results with upstream details.
package pokemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/kantolabs/pokedex/internal/domain"
	"github.com/kantolabs/pokedex/internal/usecase/recommend"
)

// Service handles the data-proxy operations.
type Service struct {
	upstream    Upstream
	recommender Recommender
}

// New creates a pokemon service.
func New(upstream Upstream, recommender Recommender) *Service {
	return &Service{upstream: upstream, recommender: recommender}
}

// ListResult is a paginated list response.
type ListResult struct {
	Count   int              `json:"count"`
	Results []domain.Summary `json:"results"`
}

// List returns one page of Pokémon summaries, optionally filtered by type.
func (s *Service) List(ctx context.Context, limit, offset int, typeFilter string) (ListResult, error) {
	if typeFilter != "" {
		return s.listByType(ctx, typeFilter, limit, offset)
	}

	count, entries, err := s.upstream.ListPage(ctx, limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("list page: %w", err)
	}

	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	return ListResult{Count: count, Results: s.upstream.Summaries(ctx, urls)}, nil
}

func (s *Service) listByType(ctx context.Context, typeFilter string, limit, offset int) (ListResult, error) {
	members, err := s.upstream.TypeMembers(ctx, typeFilter)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ListResult{}, fmt.Errorf("%w: type %q", domain.ErrNotFound, typeFilter)
		}
		return ListResult{}, fmt.Errorf("type members: %w", err)
	}

	// Paginate the member list locally; the type endpoint has no paging.
	start := offset
	if start > len(members) {
		start = len(members)
	}
	end := start + limit
	if end > len(members) {
		end = len(members)
	}

	urls := make([]string, 0, end-start)
	for _, m := range members[start:end] {
		urls = append(urls, m.URL)
	}
	return ListResult{Count: len(members), Results: s.upstream.Summaries(ctx, urls)}, nil
}

// Get returns the full detail record for one Pokémon.
func (s *Service) Get(ctx context.Context, nameOrID string) (domain.Detail, error) {
	d, err := s.upstream.Detail(ctx, nameOrID)
	if err != nil {
		return domain.Detail{}, fmt.Errorf("get %q: %w", nameOrID, err)
	}
	return d, nil
}

// SearchWithDetails matches names against the local index and fetches
// upstream summaries for the matches.
func (s *Service) SearchWithDetails(ctx context.Context, query string) (ListResult, error) {
	names, err := s.recommender.Search(query)
	if err != nil {
		return ListResult{}, fmt.Errorf("search index: %w", err)
	}
	if len(names) == 0 {
		return ListResult{Count: 0, Results: []domain.Summary{}}, nil
	}

	results := s.upstream.SummariesByName(ctx, names)
	return ListResult{Count: len(results), Results: results}, nil
}

// EvolutionResult wraps an evolution tree; Message is set instead of Chain
// when no chain exists.
type EvolutionResult struct {
	Chain   *domain.EvolutionNode `json:"chain"`
	Message string                `json:"message,omitempty"`
}

// Evolution resolves and enriches the evolution tree of a Pokémon.
// A missing species is an advisory message, not an error.
func (s *Service) Evolution(ctx context.Context, nameOrID string) (EvolutionResult, error) {
	chain, err := s.upstream.EvolutionChain(ctx, nameOrID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return EvolutionResult{
				Message: fmt.Sprintf("Species data for '%s' not found.", nameOrID),
			}, nil
		}
		return EvolutionResult{}, fmt.Errorf("evolution chain: %w", err)
	}
	if chain == nil {
		return EvolutionResult{Message: "No evolution chain available."}, nil
	}

	s.enrichChain(ctx, chain)
	return EvolutionResult{Chain: chain}, nil
}

// enrichChain fetches summaries for every species in the tree and fills in
// ids, images, and types.
func (s *Service) enrichChain(ctx context.Context, root *domain.EvolutionNode) {
	var names []string
	seen := make(map[string]bool)
	for _, node := range flattenChain(root) {
		if !seen[node.Name] {
			seen[node.Name] = true
			names = append(names, node.Name)
		}
	}

	details := s.upstream.SummariesByName(ctx, names)
	byName := make(map[string]domain.Summary, len(details))
	for _, d := range details {
		byName[d.Name] = d
	}

	for _, node := range flattenChain(root) {
		if d, ok := byName[node.Name]; ok {
			node.ID = d.ID
			node.Image = d.Image
			node.Types = d.Types
		}
	}
}

// flattenChain walks the tree iteratively and returns every node.
func flattenChain(root *domain.EvolutionNode) []*domain.EvolutionNode {
	var nodes []*domain.EvolutionNode
	stack := []*domain.EvolutionNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes = append(nodes, n)
		stack = append(stack, n.EvolvesTo...)
	}
	return nodes
}

// RecommendEnriched runs the model recommendation and merges upstream
// images and types into the ranked entries, preserving the model's stats.
func (s *Service) RecommendEnriched(ctx context.Context, name string, count int) (*recommend.Result, error) {
	result, err := s.recommender.Recommend(name, count)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	if len(result.Recommendations) == 0 {
		return result, nil
	}

	names := make([]string, len(result.Recommendations))
	for i, r := range result.Recommendations {
		names[i] = r.Name
	}

	details := s.upstream.SummariesByName(ctx, names)
	byName := make(map[string]domain.Summary, len(details))
	for _, d := range details {
		byName[domain.NormalizeName(d.Name)] = d
	}

	for i := range result.Recommendations {
		rec := &result.Recommendations[i]
		if d, ok := byName[domain.NormalizeName(rec.Name)]; ok {
			rec.Image = d.Image
			rec.Types = d.Types
			if d.ID != 0 {
				rec.ID = d.ID
			}
		}
	}
	return result, nil
}
