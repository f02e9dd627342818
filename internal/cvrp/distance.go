package cvrp

import "math"

// DistanceMatrix is a symmetric (N+1)x(N+1) table indexed by node id.
// Row and column 0 are unused and stay zero.
type DistanceMatrix [][]float64

// Round2 rounds x to two decimal places, the precision used for every
// distance and cost in this package.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// EuclideanDistance returns the planar distance between p and q rounded to
// two decimals.
func EuclideanDistance(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return Round2(math.Sqrt(dx*dx + dy*dy))
}

// BuildDistanceMatrix computes all pairwise distances for ids 1..len(coords)-1.
func BuildDistanceMatrix(coords []Point) DistanceMatrix {
	n := len(coords) - 1
	if n < 0 {
		n = 0
	}
	dist := make(DistanceMatrix, n+1)
	for i := range dist {
		dist[i] = make([]float64, n+1)
	}
	for i := 1; i <= n; i++ {
		for j := i + 1; j <= n; j++ {
			d := EuclideanDistance(coords[i], coords[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// At returns the distance between nodes i and j.
func (m DistanceMatrix) At(i, j int) float64 { return m[i][j] }

// Size reports the largest node id covered by the matrix.
func (m DistanceMatrix) Size() int {
	if len(m) == 0 {
		return 0
	}
	return len(m) - 1
}
