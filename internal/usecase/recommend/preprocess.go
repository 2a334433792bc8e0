package recommend

import (
	"math"
	"sort"
)

// preprocessor holds the transform parameters fit once on the full dataset
// and reused for every later lookup.
type preprocessor struct {
	medians []float64
	means   []float64
	stds    []float64
}

// fitPreprocessor computes per-column medians over present values, then the
// mean and standard deviation of each imputed column. Columns with no
// present values impute to 0.
func fitPreprocessor(m [][]float64) *preprocessor {
	if len(m) == 0 {
		return &preprocessor{}
	}
	cols := len(m[0])
	p := &preprocessor{
		medians: make([]float64, cols),
		means:   make([]float64, cols),
		stds:    make([]float64, cols),
	}

	for c := 0; c < cols; c++ {
		present := make([]float64, 0, len(m))
		for r := range m {
			if !math.IsNaN(m[r][c]) {
				present = append(present, m[r][c])
			}
		}
		p.medians[c] = median(present)
	}

	n := float64(len(m))
	for c := 0; c < cols; c++ {
		var sum float64
		for r := range m {
			sum += valueOr(m[r][c], p.medians[c])
		}
		mean := sum / n

		var sq float64
		for r := range m {
			d := valueOr(m[r][c], p.medians[c]) - mean
			sq += d * d
		}

		p.means[c] = mean
		p.stds[c] = math.Sqrt(sq / n)
	}
	return p
}

// impute replaces missing markers in place with column medians.
func (p *preprocessor) impute(m [][]float64) {
	for r := range m {
		for c := range m[r] {
			if math.IsNaN(m[r][c]) {
				m[r][c] = p.medians[c]
			}
		}
	}
}

// scale returns standardized copies of the rows. Zero-variance columns
// contribute 0 instead of dividing by zero.
func (p *preprocessor) scale(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for r := range m {
		row := make([]float64, len(m[r]))
		for c := range m[r] {
			if p.stds[c] == 0 {
				row[c] = 0
				continue
			}
			row[c] = (m[r][c] - p.means[c]) / p.stds[c]
		}
		out[r] = row
	}
	return out
}

func valueOr(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
