package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kantolabs/pokedex/internal/domain"
)

// --- Mocks ---

type stubFetcher struct {
	responses map[string][]byte
	errs      map[string]error
}

func (s *stubFetcher) FetchJSON(_ context.Context, url string) ([]byte, error) {
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if body, ok := s.responses[url]; ok {
		return body, nil
	}
	return nil, domain.ErrNotFound
}

const base = "https://pokeapi.co/api/v2/"

// --- Tests ---

func TestListPage(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon?limit=2&offset=0": []byte(`{
			"count": 1302,
			"results": [
				{"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon/1/"},
				{"name": "ivysaur", "url": "https://pokeapi.co/api/v2/pokemon/2/"}
			]
		}`),
	}}
	c := New(base, fetch, 4, nil)

	count, entries, err := c.ListPage(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}
	if count != 1302 {
		t.Errorf("expected count 1302, got %d", count)
	}
	if len(entries) != 2 || entries[0].Name != "bulbasaur" {
		t.Errorf("unexpected entries %v", entries)
	}
}

func TestListPage_MalformedJSON(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon?limit=2&offset=0": []byte(`{not json`),
	}}
	c := New(base, fetch, 4, nil)

	_, _, err := c.ListPage(context.Background(), 2, 0)
	if !errors.Is(err, domain.ErrUpstreamBadGateway) {
		t.Errorf("expected ErrUpstreamBadGateway, got %v", err)
	}
}

func TestDetail(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon/bulbasaur": []byte(`{
			"id": 1,
			"name": "bulbasaur",
			"sprites": {
				"front_default": "https://img.example/sprite.png",
				"other": {"official-artwork": {"front_default": "https://img.example/art.png"}}
			},
			"stats": [
				{"base_stat": 45, "stat": {"name": "hp"}},
				{"base_stat": 49, "stat": {"name": "attack"}}
			],
			"types": [{"type": {"name": "grass"}}, {"type": {"name": "poison"}}],
			"abilities": [{"ability": {"name": "overgrow"}}]
		}`),
	}}
	c := New(base, fetch, 4, nil)

	d, err := c.Detail(context.Background(), "Bulbasaur")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if d.ID != 1 || d.Name != "bulbasaur" {
		t.Errorf("unexpected identity %+v", d.Summary)
	}
	if d.Image != "https://img.example/art.png" {
		t.Errorf("expected official artwork, got %q", d.Image)
	}
	if len(d.Types) != 2 || d.Types[0] != "grass" {
		t.Errorf("unexpected types %v", d.Types)
	}
	if d.Stats["hp"] != 45 || d.Stats["attack"] != 49 {
		t.Errorf("unexpected stats %v", d.Stats)
	}
	if len(d.Abilities) != 1 || d.Abilities[0] != "overgrow" {
		t.Errorf("unexpected abilities %v", d.Abilities)
	}
}

func TestDetail_SpriteFallback(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon/bulbasaur": []byte(`{
			"id": 1,
			"name": "bulbasaur",
			"sprites": {"front_default": "https://img.example/sprite.png"}
		}`),
	}}
	c := New(base, fetch, 4, nil)

	d, err := c.Detail(context.Background(), "bulbasaur")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if d.Image != "https://img.example/sprite.png" {
		t.Errorf("expected front_default fallback, got %q", d.Image)
	}
}

func TestBaseStats(t *testing.T) {
	url := base + "pokemon/1/"
	fetch := &stubFetcher{responses: map[string][]byte{
		url: []byte(`{
			"id": 1,
			"name": "bulbasaur",
			"stats": [
				{"base_stat": 45, "stat": {"name": "hp"}},
				{"base_stat": 45, "stat": {"name": "speed"}}
			]
		}`),
	}}
	c := New(base, fetch, 4, nil)

	rec, err := c.BaseStats(context.Background(), url)
	if err != nil {
		t.Fatalf("BaseStats failed: %v", err)
	}
	if rec.ID != 1 || rec.Name != "bulbasaur" {
		t.Errorf("unexpected record %+v", rec)
	}
	if len(rec.Stats) != 2 || rec.Stats["hp"] != 45 {
		t.Errorf("unexpected stats %v", rec.Stats)
	}
	// Missing stats stay missing; imputation happens downstream.
	if _, ok := rec.Stats["attack"]; ok {
		t.Error("expected attack to be absent")
	}
}

func TestTypeMembers(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "type/grass": []byte(`{
			"pokemon": [
				{"pokemon": {"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon/1/"}},
				{"pokemon": {"name": "oddish", "url": "https://pokeapi.co/api/v2/pokemon/43/"}}
			]
		}`),
	}}
	c := New(base, fetch, 4, nil)

	members, err := c.TypeMembers(context.Background(), "Grass")
	if err != nil {
		t.Fatalf("TypeMembers failed: %v", err)
	}
	if len(members) != 2 || members[1].Name != "oddish" {
		t.Errorf("unexpected members %v", members)
	}
}

func TestSummaries_DropsFailuresAndSortsByID(t *testing.T) {
	mon := func(id int, name string) []byte {
		return []byte(fmt.Sprintf(`{"id": %d, "name": %q}`, id, name))
	}
	fetch := &stubFetcher{
		responses: map[string][]byte{
			"u3": mon(3, "venusaur"),
			"u1": mon(1, "bulbasaur"),
		},
		errs: map[string]error{"u2": errors.New("boom")},
	}
	c := New(base, fetch, 4, nil)

	out := c.Summaries(context.Background(), []string{"u3", "u2", "u1"})
	if len(out) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(out))
	}
	if out[0].ID != 1 || out[1].ID != 3 {
		t.Errorf("expected id-sorted output, got %v", out)
	}
}

func TestEvolutionChain(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon-species/bulbasaur": []byte(`{
			"evolution_chain": {"url": "https://pokeapi.co/api/v2/evolution-chain/1/"}
		}`),
		"https://pokeapi.co/api/v2/evolution-chain/1/": []byte(`{
			"chain": {
				"species": {"name": "bulbasaur"},
				"evolves_to": [{
					"species": {"name": "ivysaur"},
					"evolves_to": [{
						"species": {"name": "venusaur"},
						"evolves_to": []
					}]
				}]
			}
		}`),
	}}
	c := New(base, fetch, 4, nil)

	root, err := c.EvolutionChain(context.Background(), "bulbasaur")
	if err != nil {
		t.Fatalf("EvolutionChain failed: %v", err)
	}
	if root == nil || root.Name != "bulbasaur" {
		t.Fatalf("unexpected root %+v", root)
	}
	if len(root.EvolvesTo) != 1 || root.EvolvesTo[0].Name != "ivysaur" {
		t.Fatalf("unexpected second stage %+v", root.EvolvesTo)
	}
	third := root.EvolvesTo[0].EvolvesTo
	if len(third) != 1 || third[0].Name != "venusaur" {
		t.Errorf("unexpected third stage %+v", third)
	}
	if len(third[0].EvolvesTo) != 0 {
		t.Errorf("expected leaf, got %+v", third[0].EvolvesTo)
	}
}

func TestEvolutionChain_BranchingTree(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon-species/eevee": []byte(`{
			"evolution_chain": {"url": "https://pokeapi.co/api/v2/evolution-chain/67/"}
		}`),
		"https://pokeapi.co/api/v2/evolution-chain/67/": []byte(`{
			"chain": {
				"species": {"name": "eevee"},
				"evolves_to": [
					{"species": {"name": "vaporeon"}, "evolves_to": []},
					{"species": {"name": "jolteon"}, "evolves_to": []},
					{"species": {"name": "flareon"}, "evolves_to": []}
				]
			}
		}`),
	}}
	c := New(base, fetch, 4, nil)

	root, err := c.EvolutionChain(context.Background(), "eevee")
	if err != nil {
		t.Fatalf("EvolutionChain failed: %v", err)
	}
	if len(root.EvolvesTo) != 3 {
		t.Fatalf("expected 3 branches, got %d", len(root.EvolvesTo))
	}
	want := []string{"vaporeon", "jolteon", "flareon"}
	for i, w := range want {
		if root.EvolvesTo[i].Name != w {
			t.Errorf("branch %d: expected %q, got %q", i, w, root.EvolvesTo[i].Name)
		}
	}
}

func TestEvolutionChain_DepthBounded(t *testing.T) {
	// A malformed chain nested far deeper than any real one gets truncated
	// instead of walked forever.
	link := `{"species": {"name": "stage-12"}, "evolves_to": []}`
	for i := 11; i >= 0; i-- {
		link = fmt.Sprintf(`{"species": {"name": "stage-%d"}, "evolves_to": [%s]}`, i, link)
	}
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon-species/weird": []byte(`{
			"evolution_chain": {"url": "https://pokeapi.co/api/v2/evolution-chain/999/"}
		}`),
		"https://pokeapi.co/api/v2/evolution-chain/999/": []byte(`{"chain": ` + link + `}`),
	}}
	c := New(base, fetch, 4, nil)

	root, err := c.EvolutionChain(context.Background(), "weird")
	if err != nil {
		t.Fatalf("EvolutionChain failed: %v", err)
	}

	depth := 0
	for node := root; node != nil; {
		depth++
		if len(node.EvolvesTo) == 0 {
			break
		}
		node = node.EvolvesTo[0]
	}
	if depth != maxChainDepth+1 {
		t.Errorf("expected traversal cut at %d levels, got %d", maxChainDepth+1, depth)
	}
}

func TestEvolutionChain_NoChain(t *testing.T) {
	fetch := &stubFetcher{responses: map[string][]byte{
		base + "pokemon-species/oddball": []byte(`{"evolution_chain": {"url": ""}}`),
	}}
	c := New(base, fetch, 4, nil)

	root, err := c.EvolutionChain(context.Background(), "oddball")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if root != nil {
		t.Errorf("expected nil chain, got %+v", root)
	}
}

func TestEvolutionChain_SpeciesNotFound(t *testing.T) {
	c := New(base, &stubFetcher{}, 4, nil)

	_, err := c.EvolutionChain(context.Background(), "missingno")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
