package recommend

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFitPreprocessor_MedianImputation(t *testing.T) {
	nan := math.NaN()
	m := [][]float64{
		{1, 10},
		{2, nan},
		{3, 30},
		{nan, 50},
	}

	p := fitPreprocessor(m)

	if !almostEqual(p.medians[0], 2) {
		t.Errorf("expected column 0 median 2, got %v", p.medians[0])
	}
	// Even count of present values: mean of the middle pair.
	if !almostEqual(p.medians[1], 30) {
		t.Errorf("expected column 1 median 30, got %v", p.medians[1])
	}

	p.impute(m)
	if math.IsNaN(m[1][1]) || !almostEqual(m[1][1], 30) {
		t.Errorf("expected imputed value 30, got %v", m[1][1])
	}
	if !almostEqual(m[3][0], 2) {
		t.Errorf("expected imputed value 2, got %v", m[3][0])
	}
}

func TestFitPreprocessor_Standardize(t *testing.T) {
	m := [][]float64{
		{2},
		{4},
		{6},
		{8},
	}

	p := fitPreprocessor(m)
	p.impute(m)
	scaled := p.scale(m)

	var sum, sq float64
	for _, row := range scaled {
		sum += row[0]
	}
	mean := sum / float64(len(scaled))
	for _, row := range scaled {
		d := row[0] - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(scaled)))

	if !almostEqual(mean, 0) {
		t.Errorf("expected scaled mean 0, got %v", mean)
	}
	if !almostEqual(std, 1) {
		t.Errorf("expected scaled std 1, got %v", std)
	}
}

func TestScale_ZeroVarianceColumn(t *testing.T) {
	m := [][]float64{
		{7, 1},
		{7, 2},
		{7, 3},
	}

	p := fitPreprocessor(m)
	scaled := p.scale(m)

	for r := range scaled {
		if scaled[r][0] != 0 {
			t.Errorf("row %d: expected 0 for constant column, got %v", r, scaled[r][0])
		}
	}
}

func TestFitPreprocessor_AllMissingColumn(t *testing.T) {
	nan := math.NaN()
	m := [][]float64{
		{nan, 1},
		{nan, 2},
	}

	p := fitPreprocessor(m)
	if p.medians[0] != 0 {
		t.Errorf("expected median 0 for empty column, got %v", p.medians[0])
	}

	p.impute(m)
	if m[0][0] != 0 || m[1][0] != 0 {
		t.Error("expected all-missing column imputed to 0")
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{5, 1, 3}); !almostEqual(got, 3) {
		t.Errorf("odd count: expected 3, got %v", got)
	}
	if got := median([]float64{4, 1, 3, 2}); !almostEqual(got, 2.5) {
		t.Errorf("even count: expected 2.5, got %v", got)
	}
	if got := median(nil); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
}
