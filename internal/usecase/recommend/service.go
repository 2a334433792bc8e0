// Package recommend implements the clustering-based recommendation core:
// a feature table fetched once from upstream, a DBSCAN fit over standardized
// base stats, and read-only similarity queries against the fitted state.
package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kantolabs/pokedex/internal/domain"
)

// Config holds the model and dataset parameters.
type Config struct {
	Eps              float64
	MinSamples       int
	DatasetLimit     int
	MaxSearchResults int
	FetchConcurrency int
}

// Row is one entity of the fitted feature table.
type Row struct {
	ID      int
	Name    string
	Stats   [domain.NumStats]float64 // imputed, original units
	Scaled  []float64
	Cluster int
	PCAX    float64
	PCAY    float64
}

// Service owns the feature table and fitted model. The table is written
// exactly once, before the state flips to Ready, and is read-only afterwards;
// the state transition is the only cross-goroutine signal.
type Service struct {
	cfg    Config
	fetch  Fetcher
	logger *zap.Logger

	fitObserver prometheus.Observer

	initMu sync.Mutex
	state  atomic.Int32

	rows          []Row
	byName        map[string]int
	prep          *preprocessor
	clusterCounts map[int]int
}

// New creates an unfitted recommendation service.
func New(cfg Config, fetch Fetcher, logger *zap.Logger) *Service {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 50
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, fetch: fetch, logger: logger}
}

// WithFitObserver wires a histogram observer for the fit duration.
func (s *Service) WithFitObserver(o prometheus.Observer) *Service {
	s.fitObserver = o
	return s
}

// State reports the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// IsReady reports whether a fit has completed successfully.
func (s *Service) IsReady() bool {
	return s.State() == Ready
}

// Size returns the number of fitted rows, 0 before readiness.
func (s *Service) Size() int {
	if !s.IsReady() {
		return 0
	}
	return len(s.rows)
}

// Initialize fetches the dataset, preprocesses it, and fits the model.
// It is single-flight and idempotent: a second call after success is a no-op
// returning nil; after a failure the next call retries from scratch.
// Safe to run from a background goroutine while requests are served.
func (s *Service) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.State() == Ready {
		return nil
	}
	s.state.Store(int32(Initializing))

	if err := s.initialize(ctx); err != nil {
		s.state.Store(int32(Failed))
		return err
	}

	s.state.Store(int32(Ready))
	return nil
}

func (s *Service) initialize(ctx context.Context) error {
	s.logger.Info("Initializing recommender: fetching dataset",
		zap.Int("limit", s.cfg.DatasetLimit))

	_, entries, err := s.fetch.ListPage(ctx, s.cfg.DatasetLimit, 0)
	if err != nil {
		return fmt.Errorf("fetch pokemon list: %w", err)
	}

	// Slot per page entry keeps row order deterministic regardless of
	// which fetch finishes first.
	records := make([]*domain.BaseStats, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			rec, err := s.fetch.BaseStats(gctx, e.URL)
			if err != nil {
				s.logger.Warn("skipping pokemon after fetch failure",
					zap.String("name", e.Name), zap.Error(err))
				return nil
			}
			records[i] = &rec
			return nil
		})
	}
	_ = g.Wait() // per-row failures are swallowed; only zero rows is fatal

	var kept []*domain.BaseStats
	for _, r := range records {
		if r != nil {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: all %d fetches failed", domain.ErrNoData, len(entries))
	}

	rows := make([]Row, len(kept))
	raw := make([][]float64, len(kept))
	byName := make(map[string]int, len(kept))
	for i, rec := range kept {
		rows[i] = Row{ID: rec.ID, Name: rec.Name}
		raw[i] = make([]float64, domain.NumStats)
		for c, stat := range domain.StatNames {
			if v, ok := rec.Stats[stat]; ok {
				raw[i][c] = float64(v)
			} else {
				raw[i][c] = math.NaN()
			}
		}
		// First occurrence wins on duplicate names.
		key := domain.NormalizeName(rec.Name)
		if _, exists := byName[key]; !exists {
			byName[key] = i
		}
	}

	prep := fitPreprocessor(raw)
	prep.impute(raw)
	scaled := prep.scale(raw)

	s.logger.Info("Running DBSCAN clustering",
		zap.Int("rows", len(rows)),
		zap.Float64("eps", s.cfg.Eps),
		zap.Int("min_samples", s.cfg.MinSamples))

	fitStart := time.Now()
	labels := dbscan(scaled, s.cfg.Eps, s.cfg.MinSamples)
	pcaX, pcaY := pca2(scaled)
	if s.fitObserver != nil {
		s.fitObserver.Observe(time.Since(fitStart).Seconds())
	}

	counts := make(map[int]int)
	for i := range rows {
		copy(rows[i].Stats[:], raw[i])
		rows[i].Scaled = scaled[i]
		rows[i].Cluster = labels[i]
		rows[i].PCAX = pcaX[i]
		rows[i].PCAY = pcaY[i]
		counts[labels[i]]++
	}

	s.rows = rows
	s.byName = byName
	s.prep = prep
	s.clusterCounts = counts

	s.logger.Info("Initialization complete",
		zap.Int("clustered", len(rows)),
		zap.Int("clusters", len(counts)-outlierKeyCount(counts)),
		zap.Int("outliers", counts[LabelOutlier]),
		zap.Duration("fit_duration", time.Since(fitStart)))
	return nil
}

func outlierKeyCount(counts map[int]int) int {
	if _, ok := counts[LabelOutlier]; ok {
		return 1
	}
	return 0
}

// InputPokemon describes the query entity of a recommendation result.
type InputPokemon struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	Stats          map[string]int `json:"stats"`
	OffensivePower int            `json:"offensive_power"`
	DefensivePower int            `json:"defensive_power"`
	ClusterID      int            `json:"cluster_id"`
}

// Recommendation is one ranked same-cluster peer. Image and Types are
// filled by the enrichment layer, not by the model.
type Recommendation struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	Stats             map[string]int `json:"stats"`
	OffensivePower    int            `json:"offensive_power"`
	DefensivePower    int            `json:"defensive_power"`
	SimilarityPercent float64        `json:"similarity_percent"`
	Distance          float64        `json:"distance"`
	Image             string         `json:"image,omitempty"`
	Types             []string       `json:"types,omitempty"`
}

// Result is a full recommendation response.
type Result struct {
	Input           InputPokemon     `json:"input_pokemon"`
	Recommendations []Recommendation `json:"recommendations"`
	Message         string           `json:"message,omitempty"`
}

// Recommend ranks up to count same-cluster peers of the named Pokémon by
// ascending Euclidean distance in standardized feature space.
// An outlier query returns an advisory result with no peers, not an error.
func (s *Service) Recommend(name string, count int) (*Result, error) {
	if !s.IsReady() {
		return nil, domain.ErrNotReady
	}

	idx, ok := s.byName[domain.NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, name)
	}
	row := &s.rows[idx]

	result := &Result{
		Input:           s.inputPokemon(row),
		Recommendations: []Recommendation{},
	}

	if row.Cluster == LabelOutlier {
		result.Message = fmt.Sprintf(
			"'%s' is statistically unique (outlier). No similar Pokémon found.", name)
		return result, nil
	}

	type candidate struct {
		idx  int
		dist float64
	}
	var candidates []candidate
	queryName := domain.NormalizeName(row.Name)
	for i := range s.rows {
		if s.rows[i].Cluster != row.Cluster {
			continue
		}
		if domain.NormalizeName(s.rows[i].Name) == queryName {
			continue
		}
		candidates = append(candidates, candidate{
			idx:  i,
			dist: euclidean(row.Scaled, s.rows[i].Scaled),
		})
	}
	if len(candidates) == 0 {
		return result, nil
	}

	// Sigma comes from the unfiltered candidate set, before truncation.
	maxDist := 0.0
	for _, c := range candidates {
		if c.dist > maxDist {
			maxDist = c.dist
		}
	}
	sigma := math.Max(maxDist/2, 0.1)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})
	if count > 0 && len(candidates) > count {
		candidates = candidates[:count]
	}

	recs := make([]Recommendation, len(candidates))
	for i, c := range candidates {
		peer := &s.rows[c.idx]
		similarity := 100 * math.Exp(-c.dist/sigma)
		recs[i] = Recommendation{
			ID:                peer.ID,
			Name:              peer.Name,
			Stats:             statsMap(peer),
			OffensivePower:    offensivePower(peer),
			DefensivePower:    defensivePower(peer),
			SimilarityPercent: round(similarity, 1),
			Distance:          round(c.dist, 4),
		}
	}
	result.Recommendations = recs
	return result, nil
}

// Search returns names whose normalized form contains the normalized query,
// in table order, capped at MaxSearchResults.
func (s *Service) Search(query string) ([]string, error) {
	if !s.IsReady() {
		return nil, domain.ErrNotReady
	}

	term := domain.NormalizeName(query)
	var matches []string
	for i := range s.rows {
		if strings.Contains(domain.NormalizeName(s.rows[i].Name), term) {
			matches = append(matches, s.rows[i].Name)
			if len(matches) >= s.cfg.MaxSearchResults {
				break
			}
		}
	}
	return matches, nil
}

// VizMode selects the visualization projection.
type VizMode string

const (
	// VizAxes plots offensive vs defensive power, min-max scaled to [0,100].
	VizAxes VizMode = "axes"
	// VizPCA plots the first two principal components of the scaled features.
	VizPCA VizMode = "pca"
)

// VizPoint is one plotted entity.
type VizPoint struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	X              float64        `json:"x"`
	Y              float64        `json:"y"`
	Cluster        int            `json:"cluster"`
	Stats          map[string]int `json:"stats"`
	OffensivePower int            `json:"offensive_power"`
	DefensivePower int            `json:"defensive_power"`
}

// ClusterInfo summarizes cluster membership.
type ClusterInfo struct {
	Counts        map[string]int `json:"counts"`
	TotalClusters int            `json:"total_clusters"`
	OutlierCount  int            `json:"outlier_count"`
}

// AxisInfo describes the plotted axes.
type AxisInfo struct {
	XLabel string     `json:"x_label"`
	YLabel string     `json:"y_label"`
	XRange [2]float64 `json:"x_range"`
	YRange [2]float64 `json:"y_range"`
}

// Visualization is the full scatter-plot payload.
type Visualization struct {
	Points      []VizPoint  `json:"points"`
	ClusterInfo ClusterInfo `json:"cluster_info"`
	AxisInfo    AxisInfo    `json:"axis_info"`
}

// Visualize returns per-point coordinates plus cluster metadata. It is a
// pure function over the fitted state; no model re-fit happens here.
func (s *Service) Visualize(mode VizMode) (*Visualization, error) {
	if !s.IsReady() {
		return nil, domain.ErrNotReady
	}

	switch mode {
	case VizPCA:
		return s.visualizePCA(), nil
	case VizAxes, "":
		return s.visualizeAxes(), nil
	default:
		return nil, fmt.Errorf("unsupported visualization mode: %s", mode)
	}
}

func (s *Service) visualizeAxes() *Visualization {
	offMin, offMax := math.Inf(1), math.Inf(-1)
	defMin, defMax := math.Inf(1), math.Inf(-1)
	for i := range s.rows {
		off := float64(offensivePower(&s.rows[i]))
		def := float64(defensivePower(&s.rows[i]))
		offMin, offMax = math.Min(offMin, off), math.Max(offMax, off)
		defMin, defMax = math.Min(defMin, def), math.Max(defMax, def)
	}

	points := make([]VizPoint, len(s.rows))
	for i := range s.rows {
		row := &s.rows[i]
		off := float64(offensivePower(row))
		def := float64(defensivePower(row))
		points[i] = VizPoint{
			ID:             row.ID,
			Name:           row.Name,
			X:              round(minMaxScale(off, offMin, offMax), 2),
			Y:              round(minMaxScale(def, defMin, defMax), 2),
			Cluster:        row.Cluster,
			Stats:          statsMap(row),
			OffensivePower: offensivePower(row),
			DefensivePower: defensivePower(row),
		}
	}

	return &Visualization{
		Points:      points,
		ClusterInfo: s.clusterInfo(),
		AxisInfo: AxisInfo{
			XLabel: "Offensive Power (Atk + SpA)",
			YLabel: "Defensive Power (Def + SpD)",
			XRange: [2]float64{offMin, offMax},
			YRange: [2]float64{defMin, defMax},
		},
	}
}

func (s *Service) visualizePCA() *Visualization {
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	points := make([]VizPoint, len(s.rows))
	for i := range s.rows {
		row := &s.rows[i]
		points[i] = VizPoint{
			ID:             row.ID,
			Name:           row.Name,
			X:              round(row.PCAX, 4),
			Y:              round(row.PCAY, 4),
			Cluster:        row.Cluster,
			Stats:          statsMap(row),
			OffensivePower: offensivePower(row),
			DefensivePower: defensivePower(row),
		}
		xMin, xMax = math.Min(xMin, row.PCAX), math.Max(xMax, row.PCAX)
		yMin, yMax = math.Min(yMin, row.PCAY), math.Max(yMax, row.PCAY)
	}

	return &Visualization{
		Points:      points,
		ClusterInfo: s.clusterInfo(),
		AxisInfo: AxisInfo{
			XLabel: "PC1",
			YLabel: "PC2",
			XRange: [2]float64{round(xMin, 4), round(xMax, 4)},
			YRange: [2]float64{round(yMin, 4), round(yMax, 4)},
		},
	}
}

func (s *Service) clusterInfo() ClusterInfo {
	counts := make(map[string]int, len(s.clusterCounts))
	total := 0
	for label, n := range s.clusterCounts {
		counts[strconv.Itoa(label)] = n
		if label != LabelOutlier {
			total++
		}
	}
	return ClusterInfo{
		Counts:        counts,
		TotalClusters: total,
		OutlierCount:  s.clusterCounts[LabelOutlier],
	}
}

func (s *Service) inputPokemon(row *Row) InputPokemon {
	return InputPokemon{
		ID:             row.ID,
		Name:           row.Name,
		Stats:          statsMap(row),
		OffensivePower: offensivePower(row),
		DefensivePower: defensivePower(row),
		ClusterID:      row.Cluster,
	}
}

// Stat vector indices follow domain.StatNames:
// hp, attack, defense, special-attack, special-defense, speed.
func offensivePower(row *Row) int { return int(row.Stats[1]) + int(row.Stats[3]) }
func defensivePower(row *Row) int { return int(row.Stats[2]) + int(row.Stats[4]) }

func statsMap(row *Row) map[string]int {
	m := make(map[string]int, domain.NumStats)
	for i, name := range domain.StatNames {
		m[name] = int(row.Stats[i])
	}
	return m
}

// minMaxScale maps v into [0,100]. A zero-width range collapses to 0.
func minMaxScale(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo) * 100
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
