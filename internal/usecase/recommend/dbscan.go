package recommend

import "math"

// Cluster labels.
const (
	labelUndefined = -2
	// LabelOutlier marks a noise point no dense neighborhood absorbed.
	LabelOutlier = -1
)

// dbscan assigns every row a cluster label (0..k-1) or LabelOutlier.
//
// Two rows are neighbors when their Euclidean distance is <= eps. A row is a
// core point when its neighborhood, itself included, holds at least
// minSamples rows. Clusters grow breadth-first from each unvisited core
// point, so the labeling is deterministic for a fixed input order.
func dbscan(points [][]float64, eps float64, minSamples int) []int {
	n := len(points)
	if n == 0 {
		return nil
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = labelUndefined
	}

	clusterID := -1
	for i := 0; i < n; i++ {
		if labels[i] != labelUndefined {
			continue
		}

		neighbors := rangeQuery(points, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = LabelOutlier
			continue
		}

		clusterID++
		labels[i] = clusterID

		// Seed set: neighbors minus point i.
		seed := make([]int, 0, len(neighbors))
		for _, j := range neighbors {
			if j != i {
				seed = append(seed, j)
			}
		}

		for len(seed) > 0 {
			q := seed[0]
			seed = seed[1:]

			if labels[q] == LabelOutlier {
				labels[q] = clusterID // border point reached by a core point
			}
			if labels[q] != labelUndefined {
				continue
			}
			labels[q] = clusterID

			qNeighbors := rangeQuery(points, q, eps)
			if len(qNeighbors) >= minSamples {
				seed = append(seed, qNeighbors...)
			}
		}
	}

	return labels
}

// rangeQuery returns indices of all points within eps of points[idx],
// including idx itself.
func rangeQuery(points [][]float64, idx int, eps float64) []int {
	var result []int
	for i := range points {
		if euclidean(points[idx], points[i]) <= eps {
			result = append(result, i)
		}
	}
	return result
}

// euclidean computes the Euclidean distance between two equal-length vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
