package domain

import "context"

// Fetcher retrieves a raw JSON document from the upstream data source.
// Implementations translate transport failures into the Upstream* sentinels.
// Decorators (caching) wrap this interface.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// BaseStats is the minimal per-Pokémon record the recommender trains on.
// Stats may be missing keys when upstream omits a stat; imputation fills
// them during preprocessing.
type BaseStats struct {
	ID    int
	Name  string
	Stats map[string]int
}
