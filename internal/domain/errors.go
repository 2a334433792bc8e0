package domain

import "errors"

var (
	// ErrNotFound signals a Pokémon absent from the dataset or upstream.
	ErrNotFound = errors.New("pokemon not found")
	// ErrNotReady signals a query against the recommender before the first
	// successful fit.
	ErrNotReady = errors.New("recommender not ready")
	// ErrNoData signals that initialization fetched zero usable rows.
	ErrNoData = errors.New("no pokemon data loaded")
	// ErrUpstreamTimeout signals a PokeAPI request that exceeded its deadline.
	ErrUpstreamTimeout = errors.New("upstream request timed out")
	// ErrUpstreamUnavailable signals that PokeAPI could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamBadGateway signals an unexpected upstream response.
	ErrUpstreamBadGateway = errors.New("upstream returned an error")
)
