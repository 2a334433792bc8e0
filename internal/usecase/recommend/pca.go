package recommend

import "math"

// pca2 projects standardized rows onto their first two principal components
// using power iteration with deflation. The input is already centered (the
// standardizer subtracts column means), so the covariance matrix is X'X/n.
// Component signs are fixed so the projection is deterministic.
func pca2(scaled [][]float64) (xs, ys []float64) {
	n := len(scaled)
	xs = make([]float64, n)
	ys = make([]float64, n)
	if n == 0 {
		return xs, ys
	}
	dim := len(scaled[0])

	cov := covariance(scaled)

	v1, l1 := powerIteration(cov)
	deflate(cov, v1, l1)
	v2, _ := powerIteration(cov)

	for i, row := range scaled {
		var x, y float64
		for c := 0; c < dim; c++ {
			x += row[c] * v1[c]
			y += row[c] * v2[c]
		}
		xs[i] = x
		ys[i] = y
	}
	return xs, ys
}

func covariance(m [][]float64) [][]float64 {
	n := float64(len(m))
	dim := len(m[0])
	cov := make([][]float64, dim)
	for i := range cov {
		cov[i] = make([]float64, dim)
	}
	for _, row := range m {
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				cov[i][j] += row[i] * row[j] / n
			}
		}
	}
	return cov
}

// powerIteration finds the dominant eigenvector and eigenvalue of a
// symmetric matrix. The start vector is fixed for determinism.
func powerIteration(a [][]float64) ([]float64, float64) {
	dim := len(a)
	v := make([]float64, dim)
	for i := range v {
		v[i] = 1 / math.Sqrt(float64(dim))
	}

	var lambda float64
	for iter := 0; iter < 200; iter++ {
		w := make([]float64, dim)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				w[i] += a[i][j] * v[j]
			}
		}

		norm := vecNorm(w)
		if norm == 0 {
			break // degenerate matrix, keep current vector
		}
		for i := range w {
			w[i] /= norm
		}

		next := norm
		converged := math.Abs(next-lambda) < 1e-12
		v, lambda = w, next
		if converged {
			break
		}
	}

	// Fix sign: largest-magnitude component is positive.
	maxIdx := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[maxIdx]) {
			maxIdx = i
		}
	}
	if v[maxIdx] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
	return v, lambda
}

// deflate removes the contribution of eigenpair (v, lambda) in place.
func deflate(a [][]float64, v []float64, lambda float64) {
	for i := range a {
		for j := range a[i] {
			a[i][j] -= lambda * v[i] * v[j]
		}
	}
}

func vecNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
