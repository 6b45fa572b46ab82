// Package vector implements the vector math used by the service:
// k-means clustering over paper embeddings for trend analysis and
// distance-to-similarity conversion for the recommendation engine.
package vector

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Defaults for clustering runs.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
	DefaultSeed          = 42
)

// KMeansConfig tunes one clustering run.
type KMeansConfig struct {
	// K is the number of clusters.
	K int
	// MaxIterations caps the Lloyd iteration count.
	MaxIterations int
	// Tolerance is the centroid shift below which the run has converged.
	Tolerance float64
	// Seed fixes initialization so identical inputs cluster identically.
	Seed int64
}

// Clustering is the result of a k-means run.
type Clustering struct {
	// Assignments maps each input vector to its cluster index.
	Assignments []int
	// Centroids are the final cluster centers.
	Centroids [][]float32
	// Sizes counts the members of each cluster.
	Sizes []int
}

// ChooseK picks a cluster count for n vectors, bounded to [minK, maxK]
// and never exceeding n.
func ChooseK(n, minK, maxK int) int {
	k := n / 10
	if k < minK {
		k = minK
	}
	if k > maxK {
		k = maxK
	}
	if k > n {
		k = n
	}
	return k
}

// KMeans clusters vectors into cfg.K groups with Lloyd's algorithm.
// Initialization draws K distinct vectors using the seeded generator,
// so runs are reproducible. An empty cluster keeps its previous
// centroid rather than being reseeded.
//
// When the run hits the iteration cap without converging, the
// clustering produced so far is still returned together with a
// convergence error, and the caller decides whether to use it.
func KMeans(vectors [][]float32, cfg KMeansConfig) (*Clustering, error) {
	n := len(vectors)
	if cfg.K <= 0 {
		return nil, fmt.Errorf("cluster count %d: %w", cfg.K, domain.ErrInvalidInput)
	}
	if n < cfg.K {
		return nil, fmt.Errorf("%d vectors for %d clusters: %w", n, cfg.K, domain.ErrInvalidInput)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d: %w", i, len(v), dim, domain.ErrInvalidInput)
		}
	}

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	centroids := make([][]float32, cfg.K)
	for i, idx := range rng.Perm(n)[:cfg.K] {
		centroids[i] = append([]float32(nil), vectors[idx]...)
	}

	assignments := make([]int, n)
	converged := false

	for iter := 0; iter < maxIter; iter++ {
		for i, v := range vectors {
			assignments[i] = nearestCentroid(v, centroids)
		}

		sums := make([][]float64, cfg.K)
		counts := make([]int, cfg.K)
		for k := range sums {
			sums[k] = make([]float64, dim)
		}
		for i, v := range vectors {
			k := assignments[i]
			counts[k]++
			for d, x := range v {
				sums[k][d] += float64(x)
			}
		}

		maxShift := 0.0
		for k := range centroids {
			if counts[k] == 0 {
				continue
			}
			next := make([]float32, dim)
			for d := range next {
				next[d] = float32(sums[k][d] / float64(counts[k]))
			}
			shift := L2Distance(centroids[k], next)
			if shift > maxShift {
				maxShift = shift
			}
			centroids[k] = next
		}

		if maxShift < tolerance {
			converged = true
			break
		}
	}

	sizes := make([]int, cfg.K)
	for _, k := range assignments {
		sizes[k]++
	}

	result := &Clustering{
		Assignments: assignments,
		Centroids:   centroids,
		Sizes:       sizes,
	}

	if !converged {
		return result, fmt.Errorf("no convergence within %d iterations: %w", maxIter, domain.ErrClusteringConvergence)
	}
	return result, nil
}

func nearestCentroid(v []float32, centroids [][]float32) int {
	best := 0
	bestDist := math.MaxFloat64
	for k, c := range centroids {
		if d := squaredL2(v, c); d < bestDist {
			bestDist = d
			best = k
		}
	}
	return best
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// L2Distance returns the Euclidean distance between two vectors.
func L2Distance(a, b []float32) float64 {
	return math.Sqrt(squaredL2(a, b))
}

// Similarity converts an L2 distance into a score in (0, 1], where
// identical vectors score 1.
func Similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}
