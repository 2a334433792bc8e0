// Package chi implements the HTTP transport: routing, request validation,
// the response envelope, and the mapping of domain sentinels to statuses.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kantolabs/pokedex/internal/domain"
	healthuc "github.com/kantolabs/pokedex/internal/usecase/health"
	pokemonuc "github.com/kantolabs/pokedex/internal/usecase/pokemon"
	recommenduc "github.com/kantolabs/pokedex/internal/usecase/recommend"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	defaultRecs      = 5
	maxRecs          = 10
)

// namePattern restricts user-supplied names to what PokeAPI identifiers use.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9- ]+$`)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the use case services behind the HTTP API.
type Server struct {
	pokemons      *pokemonuc.Service
	recommender   *recommenduc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	pokemons *pokemonuc.Service,
	recommender *recommenduc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pokemons:    pokemons,
		recommender: recommender,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, "not_ready"),
		sentinelHandler(domain.ErrUpstreamTimeout, http.StatusGatewayTimeout, "upstream_timeout"),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "upstream_unavailable"),
		sentinelHandler(domain.ErrUpstreamBadGateway, http.StatusBadGateway, "upstream_error"),
	}
	return s
}

// Register mounts all routes on the router. Per-route rate limits follow
// the cost of the operation: fan-out endpoints get tighter budgets.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.With(httprate.LimitByIP(100, time.Minute)).
			Get("/pokemon", s.listPokemon)
		r.With(httprate.LimitByIP(120, time.Minute)).
			Get("/pokemon/search", s.searchPokemon)
		r.With(httprate.LimitByIP(100, time.Minute)).
			Get("/pokemon/{nameOrID}", s.getPokemon)
		r.With(httprate.LimitByIP(60, time.Minute)).
			Get("/pokemon/{nameOrID}/evolution", s.getEvolution)
		r.With(httprate.LimitByIP(60, time.Minute)).
			Get("/recommend/{name}", s.getRecommendations)
		r.With(httprate.LimitByIP(30, time.Minute)).
			Get("/cluster-visualization", s.getClusterVisualization)
	})
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metrics)
}

// listPokemon handles GET /api/v1/pokemon.
func (s *Server) listPokemon(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultPageLimit, 1, maxPageLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_failed", "limit must be between 1 and 100")
		return
	}
	offset, ok := queryInt(r, "offset", 0, 0, 1<<30)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_failed", "offset must be non-negative")
		return
	}

	result, err := s.pokemons.List(r.Context(), limit, offset, r.URL.Query().Get("type"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, result, "")
}

// searchPokemon handles GET /api/v1/pokemon/search.
func (s *Server) searchPokemon(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if !validName(name) {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"name must be 1-50 characters of letters, numbers, hyphens, or spaces")
		return
	}

	result, err := s.pokemons.SearchWithDetails(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, result, "")
}

// getPokemon handles GET /api/v1/pokemon/{nameOrID}.
func (s *Server) getPokemon(w http.ResponseWriter, r *http.Request) {
	detail, err := s.pokemons.Get(r.Context(), chi.URLParam(r, "nameOrID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, detail, "")
}

// getEvolution handles GET /api/v1/pokemon/{nameOrID}/evolution.
func (s *Server) getEvolution(w http.ResponseWriter, r *http.Request) {
	result, err := s.pokemons.Evolution(r.Context(), chi.URLParam(r, "nameOrID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, result, result.Message)
}

// getRecommendations handles GET /api/v1/recommend/{name}.
func (s *Server) getRecommendations(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validName(name) {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"name must be 1-50 characters of letters, numbers, hyphens, or spaces")
		return
	}
	num, ok := queryInt(r, "num", defaultRecs, 1, maxRecs)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_failed", "num must be between 1 and 10")
		return
	}

	result, err := s.pokemons.RecommendEnriched(r.Context(), name, num)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, result, result.Message)
}

// getClusterVisualization handles GET /api/v1/cluster-visualization.
func (s *Server) getClusterVisualization(w http.ResponseWriter, r *http.Request) {
	mode := recommenduc.VizMode(r.URL.Query().Get("mode"))
	switch mode {
	case "", recommenduc.VizAxes, recommenduc.VizPCA:
		// ok
	default:
		writeError(w, http.StatusBadRequest, "validation_failed", `mode must be "axes" or "pca"`)
		return
	}

	viz, err := s.recommender.Visualize(mode)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, viz, "")
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":            report.Status,
		"checks":            report.Checks,
		"recommender_state": report.RecommenderState,
	})
}

// metrics handles GET /metrics.
func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func validName(name string) bool {
	return len(name) >= 1 && len(name) <= 50 && namePattern.MatchString(name)
}

// queryInt parses an integer query parameter with a default and bounds.
func queryInt(r *http.Request, key string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

type standardResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, standardResponse{Success: true, Data: data, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message, ErrorCode: code})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrNotReady,
		domain.ErrUpstreamTimeout,
		domain.ErrUpstreamUnavailable,
		domain.ErrUpstreamBadGateway,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
