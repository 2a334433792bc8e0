package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kantolabs/pokedex/internal/domain"
)

// maxChainDepth bounds evolution tree traversal so malformed upstream data
// cannot recurse without limit. Real chains top out at three stages.
const maxChainDepth = 8

// Client reshapes PokeAPI documents into domain types. All network access
// goes through the injected fetcher, so caching and resilience decorators
// apply uniformly.
type Client struct {
	base        string
	fetch       domain.Fetcher
	concurrency int
	logger      *zap.Logger
}

// New creates a PokeAPI client. base must end with a trailing slash
// (e.g. "https://pokeapi.co/api/v2/").
func New(base string, fetch domain.Fetcher, concurrency int, logger *zap.Logger) *Client {
	if concurrency <= 0 {
		concurrency = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{base: base, fetch: fetch, concurrency: concurrency, logger: logger}
}

// ListPage fetches one page of the Pokémon list endpoint.
func (c *Client) ListPage(ctx context.Context, limit, offset int) (int, []domain.PageEntry, error) {
	u := fmt.Sprintf("%spokemon?limit=%d&offset=%d", c.base, limit, offset)
	data, err := c.fetch.FetchJSON(ctx, u)
	if err != nil {
		return 0, nil, fmt.Errorf("list page: %w", err)
	}

	var page pageDTO
	if err := json.Unmarshal(data, &page); err != nil {
		return 0, nil, fmt.Errorf("%w: parse list page: %s", domain.ErrUpstreamBadGateway, err)
	}

	entries := make([]domain.PageEntry, len(page.Results))
	for i, r := range page.Results {
		entries[i] = domain.PageEntry{Name: r.Name, URL: r.URL}
	}
	return page.Count, entries, nil
}

// TypeMembers returns the full member list of a Pokémon type.
func (c *Client) TypeMembers(ctx context.Context, typeName string) ([]domain.PageEntry, error) {
	u := c.base + "type/" + url.PathEscape(domain.NormalizeName(typeName))
	data, err := c.fetch.FetchJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("type members: %w", err)
	}

	var t typeDTO
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: parse type: %s", domain.ErrUpstreamBadGateway, err)
	}

	entries := make([]domain.PageEntry, len(t.Pokemon))
	for i, p := range t.Pokemon {
		entries[i] = domain.PageEntry{Name: p.Pokemon.Name, URL: p.Pokemon.URL}
	}
	return entries, nil
}

// Detail fetches the full reshaped record for one Pokémon by name or id.
func (c *Client) Detail(ctx context.Context, nameOrID string) (domain.Detail, error) {
	u := c.base + "pokemon/" + url.PathEscape(domain.NormalizeName(nameOrID))
	return c.detailByURL(ctx, u)
}

func (c *Client) detailByURL(ctx context.Context, u string) (domain.Detail, error) {
	data, err := c.fetch.FetchJSON(ctx, u)
	if err != nil {
		return domain.Detail{}, fmt.Errorf("detail: %w", err)
	}

	var p pokemonDTO
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Detail{}, fmt.Errorf("%w: parse pokemon: %s", domain.ErrUpstreamBadGateway, err)
	}
	return detailFromDTO(p), nil
}

// BaseStats fetches the stat record used by the recommender. Missing stats
// stay missing; the caller imputes.
func (c *Client) BaseStats(ctx context.Context, u string) (domain.BaseStats, error) {
	data, err := c.fetch.FetchJSON(ctx, u)
	if err != nil {
		return domain.BaseStats{}, fmt.Errorf("base stats: %w", err)
	}

	var p pokemonDTO
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.BaseStats{}, fmt.Errorf("%w: parse pokemon: %s", domain.ErrUpstreamBadGateway, err)
	}

	stats := make(map[string]int, len(p.Stats))
	for _, s := range p.Stats {
		stats[s.Stat.Name] = s.BaseStat
	}
	return domain.BaseStats{ID: p.ID, Name: p.Name, Stats: stats}, nil
}

// Summaries fetches detail documents for urls concurrently and reshapes them
// into summaries. Individual failures are logged and dropped; the result is
// sorted by id for stable output.
func (c *Client) Summaries(ctx context.Context, urls []string) []domain.Summary {
	var (
		mu  sync.Mutex
		out []domain.Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			d, err := c.detailByURL(gctx, u)
			if err != nil {
				c.logger.Warn("skipping pokemon after fetch failure",
					zap.String("url", u), zap.Error(err))
				return nil
			}
			mu.Lock()
			out = append(out, d.Summary)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are dropped rows

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SummariesByName fetches summaries for a list of Pokémon names.
func (c *Client) SummariesByName(ctx context.Context, names []string) []domain.Summary {
	urls := make([]string, len(names))
	for i, n := range names {
		urls[i] = c.base + "pokemon/" + url.PathEscape(domain.NormalizeName(n))
	}
	return c.Summaries(ctx, urls)
}

// EvolutionChain resolves the bare evolution tree for a Pokémon: species ->
// chain document -> tree of names. Nodes carry names only; callers enrich
// with details. Returns domain.ErrNotFound when the species is unknown.
func (c *Client) EvolutionChain(ctx context.Context, nameOrID string) (*domain.EvolutionNode, error) {
	u := c.base + "pokemon-species/" + url.PathEscape(domain.NormalizeName(nameOrID))
	data, err := c.fetch.FetchJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("species: %w", err)
	}

	var sp speciesDTO
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("%w: parse species: %s", domain.ErrUpstreamBadGateway, err)
	}
	if sp.EvolutionChain.URL == "" {
		return nil, nil // species exists but has no chain
	}

	data, err = c.fetch.FetchJSON(ctx, sp.EvolutionChain.URL)
	if err != nil {
		return nil, fmt.Errorf("evolution chain: %w", err)
	}

	var chain evolutionChainDTO
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("%w: parse evolution chain: %s", domain.ErrUpstreamBadGateway, err)
	}

	return buildChainTree(chain.Chain), nil
}

// buildChainTree converts the wire chain into the domain tree iteratively,
// dropping anything past maxChainDepth.
func buildChainTree(root chainLinkDTO) *domain.EvolutionNode {
	type frame struct {
		link  *chainLinkDTO
		node  *domain.EvolutionNode
		depth int
	}

	rootNode := &domain.EvolutionNode{Name: root.Species.Name, EvolvesTo: []*domain.EvolutionNode{}}
	stack := []frame{{link: &root, node: rootNode, depth: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth >= maxChainDepth {
			continue
		}
		for i := range f.link.EvolvesTo {
			child := &f.link.EvolvesTo[i]
			childNode := &domain.EvolutionNode{Name: child.Species.Name, EvolvesTo: []*domain.EvolutionNode{}}
			f.node.EvolvesTo = append(f.node.EvolvesTo, childNode)
			stack = append(stack, frame{link: child, node: childNode, depth: f.depth + 1})
		}
	}
	return rootNode
}

func detailFromDTO(p pokemonDTO) domain.Detail {
	image := p.Sprites.Other.OfficialArtwork.FrontDefault
	if image == "" {
		image = p.Sprites.FrontDefault
	}

	types := make([]string, len(p.Types))
	for i, t := range p.Types {
		types[i] = t.Type.Name
	}

	stats := make(map[string]int, len(p.Stats))
	for _, s := range p.Stats {
		stats[s.Stat.Name] = s.BaseStat
	}

	abilities := make([]string, len(p.Abilities))
	for i, a := range p.Abilities {
		abilities[i] = a.Ability.Name
	}

	return domain.Detail{
		Summary: domain.Summary{
			ID:    p.ID,
			Name:  p.Name,
			Types: types,
			Image: image,
		},
		Stats:     stats,
		Abilities: abilities,
	}
}
