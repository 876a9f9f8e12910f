package analysis

import (
	"math"
	"sort"
)

// Clustering parameters. A habit needs at least minClusterSize mistakes;
// minSamples controls how conservative the density estimate is.
const (
	minClusterSize = 5
	minSamples     = 3
)

// noiseLabel marks mistakes that belong to no recurring pattern.
const noiseLabel = -1

// clusterMistakes finds density clusters in a precomputed distance matrix.
// It returns a cluster label per point (noiseLabel for outliers) and a
// membership strength in [0, 1] per point (0 for noise).
//
// The approach follows density clustering over mutual reachability: each
// point's core distance smooths the metric, a minimum spanning tree links
// the points, and the tree is cut at the largest weight gap. Components
// smaller than minClusterSize become noise, and a single cluster covering
// every point is rejected as no structure.
func clusterMistakes(dist [][]float64) (labels []int, probabilities []float64) {
	n := len(dist)
	labels = make([]int, n)
	probabilities = make([]float64, n)
	for i := range labels {
		labels[i] = noiseLabel
	}
	if n < minClusterSize {
		return labels, probabilities
	}

	core := coreDistances(dist)

	reach := func(i, j int) float64 {
		return math.Max(dist[i][j], math.Max(core[i], core[j]))
	}

	edges := spanningTree(n, reach)

	keep := cutLargestGap(edges)
	if keep == nil {
		return labels, probabilities
	}

	components := connectedComponents(n, keep)

	// Deterministic labeling: clusters ordered by their smallest member.
	sort.Slice(components, func(a, b int) bool { return components[a][0] < components[b][0] })

	next := 0
	for _, members := range components {
		if len(members) < minClusterSize {
			continue
		}
		if len(members) == n {
			// one cluster swallowing everything means no real structure
			continue
		}
		for _, i := range members {
			labels[i] = next
		}
		assignProbabilities(members, reach, probabilities)
		next++
	}
	return labels, probabilities
}

// coreDistances returns, per point, the distance to its minSamples-th
// nearest neighbor.
func coreDistances(dist [][]float64) []float64 {
	n := len(dist)
	core := make([]float64, n)
	row := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		row = row[:0]
		for j := 0; j < n; j++ {
			if j != i {
				row = append(row, dist[i][j])
			}
		}
		sort.Float64s(row)
		k := minSamples
		if k > len(row) {
			k = len(row)
		}
		core[i] = row[k-1]
	}
	return core
}

type treeEdge struct {
	a, b   int
	weight float64
}

// spanningTree builds a minimum spanning tree of the complete graph under
// the given metric using Prim's algorithm.
func spanningTree(n int, metric func(i, j int) float64) []treeEdge {
	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range bestDist {
		bestDist[i] = math.Inf(1)
	}

	inTree[0] = true
	for j := 1; j < n; j++ {
		bestDist[j] = metric(0, j)
		bestFrom[j] = 0
	}

	edges := make([]treeEdge, 0, n-1)
	for len(edges) < n-1 {
		next := -1
		for j := 0; j < n; j++ {
			if !inTree[j] && (next == -1 || bestDist[j] < bestDist[next]) {
				next = j
			}
		}
		edges = append(edges, treeEdge{a: bestFrom[next], b: next, weight: bestDist[next]})
		inTree[next] = true
		for j := 0; j < n; j++ {
			if !inTree[j] {
				if d := metric(next, j); d < bestDist[j] {
					bestDist[j] = d
					bestFrom[j] = next
				}
			}
		}
	}
	return edges
}

// cutLargestGap drops the tree edges above the largest gap in the sorted
// edge weights. A tree with no meaningful gap returns nil: uniformly spread
// points have no clusters.
func cutLargestGap(edges []treeEdge) []treeEdge {
	sorted := make([]treeEdge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].weight < sorted[b].weight })

	gapAfter := -1
	var largest float64
	for i := 0; i < len(sorted)-1; i++ {
		if gap := sorted[i+1].weight - sorted[i].weight; gap > largest {
			largest = gap
			gapAfter = i
		}
	}
	if gapAfter == -1 || largest <= 1e-9 {
		return nil
	}
	return sorted[:gapAfter+1]
}

func connectedComponents(n int, edges []treeEdge) [][]int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for _, e := range edges {
		parent[find(e.a)] = find(e.b)
	}

	byRoot := map[int][]int{}
	for i := 0; i < n; i++ {
		root := find(i)
		byRoot[root] = append(byRoot[root], i)
	}
	components := make([][]int, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Ints(members)
		components = append(components, members)
	}
	return components
}

// assignProbabilities scores each member by closeness to the cluster
// medoid: the medoid gets 1, the farthest member approaches 0.
func assignProbabilities(members []int, metric func(i, j int) float64, probabilities []float64) {
	medoid := members[0]
	best := math.Inf(1)
	for _, i := range members {
		var sum float64
		for _, j := range members {
			if i != j {
				sum += metric(i, j)
			}
		}
		if sum < best {
			best = sum
			medoid = i
		}
	}

	var maxDist float64
	for _, i := range members {
		if i != medoid {
			if d := metric(i, medoid); d > maxDist {
				maxDist = d
			}
		}
	}
	for _, i := range members {
		if maxDist == 0 {
			probabilities[i] = 1
			continue
		}
		// farthest member keeps half strength; it still made the cluster
		probabilities[i] = 1 - metric(i, medoid)/(2*maxDist)
	}
	probabilities[medoid] = 1
}
