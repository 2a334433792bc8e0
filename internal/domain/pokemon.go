// Package domain holds the core Pokémon value types shared across layers.
package domain

import "strings"

// StatNames are the six base stats used as clustering features, in the
// order PokeAPI reports them. Feature vectors follow this order.
var StatNames = [NumStats]string{
	"hp", "attack", "defense", "special-attack", "special-defense", "speed",
}

// NumStats is the feature vector dimensionality.
const NumStats = 6

// PageEntry is one item of an upstream list page.
type PageEntry struct {
	Name string
	URL  string
}

// Summary is the reshaped upstream representation used in list and search
// responses.
type Summary struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Types []string `json:"types"`
	Image string   `json:"image,omitempty"`
}

// Detail extends Summary with base stats and abilities.
type Detail struct {
	Summary
	Stats     map[string]int `json:"stats"`
	Abilities []string       `json:"abilities"`
}

// EvolutionNode is one species in an evolution tree.
type EvolutionNode struct {
	ID        int              `json:"id,omitempty"`
	Name      string           `json:"name"`
	Image     string           `json:"image,omitempty"`
	Types     []string         `json:"types,omitempty"`
	EvolvesTo []*EvolutionNode `json:"evolves_to"`
}

// NormalizeName converts user input to the hyphen-separated lowercase form
// PokeAPI uses ("Mr. Mime" is out of luck, but "mr mime" becomes "mr-mime").
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
