package graph

import (
	"sort"

	"github.com/google/uuid"
)

// ClusterEdge is an undirected adjacency entry fed to a clusterer.
type ClusterEdge struct {
	Source uuid.UUID
	Target uuid.UUID
	Weight float64
}

// Clusterer assigns a cluster id to every node. Ids start at 1; the zero
// value means unclustered. Implementations are deterministic for a given
// input so re-runs do not churn tags.
type Clusterer interface {
	Name() string
	Description() string
	Cluster(nodeIds []uuid.UUID, edges []ClusterEdge, minSize, maxSize int) map[uuid.UUID]int
}

// buildAdjacency returns neighbor lists with ids sorted for determinism.
func buildAdjacency(nodeIds []uuid.UUID, edges []ClusterEdge) map[uuid.UUID][]uuid.UUID {
	adj := make(map[uuid.UUID][]uuid.UUID, len(nodeIds))
	for _, id := range nodeIds {
		adj[id] = nil
	}
	for _, e := range edges {
		if _, ok := adj[e.Source]; !ok {
			continue
		}
		if _, ok := adj[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for id := range adj {
		sort.Slice(adj[id], func(i, j int) bool {
			return adj[id][i].String() < adj[id][j].String()
		})
	}
	return adj
}

func sortedIds(nodeIds []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(nodeIds))
	copy(out, nodeIds)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// ConnectedComponentsClusterer puts each weakly connected component in its
// own cluster, then enforces the size bounds.
type ConnectedComponentsClusterer struct{}

func NewConnectedComponentsClusterer() *ConnectedComponentsClusterer {
	return &ConnectedComponentsClusterer{}
}

func (c *ConnectedComponentsClusterer) Name() string { return "connected_components" }

func (c *ConnectedComponentsClusterer) Description() string {
	return "One cluster per weakly connected component"
}

func (c *ConnectedComponentsClusterer) Cluster(nodeIds []uuid.UUID, edges []ClusterEdge, minSize, maxSize int) map[uuid.UUID]int {
	adj := buildAdjacency(nodeIds, edges)
	assignment := make(map[uuid.UUID]int, len(nodeIds))

	next := 1
	for _, start := range sortedIds(nodeIds) {
		if assignment[start] != 0 {
			continue
		}
		component := bfsOrder(start, adj, assignment)
		for _, id := range component {
			assignment[id] = next
		}
		next++
	}

	return enforceSizeBounds(assignment, adj, minSize, maxSize)
}

// LabelPropagationClusterer runs synchronous label propagation: every node
// repeatedly adopts the most common label among its neighbors until the
// labels stabilize. Communities denser than their surroundings converge to a
// shared label.
type LabelPropagationClusterer struct {
	maxIterations int
}

func NewLabelPropagationClusterer() *LabelPropagationClusterer {
	return &LabelPropagationClusterer{maxIterations: 20}
}

func (c *LabelPropagationClusterer) Name() string { return "label_propagation" }

func (c *LabelPropagationClusterer) Description() string {
	return "Community detection by synchronous label propagation"
}

func (c *LabelPropagationClusterer) Cluster(nodeIds []uuid.UUID, edges []ClusterEdge, minSize, maxSize int) map[uuid.UUID]int {
	ordered := sortedIds(nodeIds)
	adj := buildAdjacency(nodeIds, edges)

	labels := make(map[uuid.UUID]int, len(ordered))
	for i, id := range ordered {
		labels[id] = i + 1
	}

	for iter := 0; iter < c.maxIterations; iter++ {
		changed := false
		for _, id := range ordered {
			neighbors := adj[id]
			if len(neighbors) == 0 {
				continue
			}
			counts := make(map[int]int)
			for _, n := range neighbors {
				counts[labels[n]]++
			}
			best := labels[id]
			bestCount := counts[best]
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label < best) {
					best = label
					bestCount = count
				}
			}
			if best != labels[id] {
				labels[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// Renumber labels densely so downstream ids are stable and small.
	renumber := make(map[int]int)
	next := 1
	assignment := make(map[uuid.UUID]int, len(ordered))
	for _, id := range ordered {
		label := labels[id]
		if _, ok := renumber[label]; !ok {
			renumber[label] = next
			next++
		}
		assignment[id] = renumber[label]
	}

	return enforceSizeBounds(assignment, adj, minSize, maxSize)
}

func bfsOrder(start uuid.UUID, adj map[uuid.UUID][]uuid.UUID, assigned map[uuid.UUID]int) []uuid.UUID {
	var order []uuid.UUID
	visited := map[uuid.UUID]bool{start: true}
	queue := []uuid.UUID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, n := range adj[id] {
			if !visited[n] && assigned[n] == 0 {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return order
}

// enforceSizeBounds splits clusters above maxSize and merges clusters below
// minSize into the neighboring cluster they share the most edges with.
// Undersized clusters with no external edges keep their tag; a singleton
// island is still a valid community.
func enforceSizeBounds(assignment map[uuid.UUID]int, adj map[uuid.UUID][]uuid.UUID, minSize, maxSize int) map[uuid.UUID]int {
	members := make(map[int][]uuid.UUID)
	for id, cluster := range assignment {
		members[cluster] = append(members[cluster], id)
	}
	for cluster := range members {
		sort.Slice(members[cluster], func(i, j int) bool {
			return members[cluster][i].String() < members[cluster][j].String()
		})
	}

	nextId := 0
	for cluster := range members {
		if cluster > nextId {
			nextId = cluster
		}
	}
	nextId++

	if maxSize > 0 {
		clusterIds := make([]int, 0, len(members))
		for cluster := range members {
			clusterIds = append(clusterIds, cluster)
		}
		sort.Ints(clusterIds)
		for _, cluster := range clusterIds {
			ids := members[cluster]
			for len(ids) > maxSize {
				split := ids[:maxSize]
				ids = ids[maxSize:]
				for _, id := range split {
					assignment[id] = nextId
				}
				members[nextId] = split
				nextId++
			}
			members[cluster] = ids
		}
	}

	if minSize > 1 {
		clusterIds := make([]int, 0, len(members))
		for cluster := range members {
			clusterIds = append(clusterIds, cluster)
		}
		sort.Ints(clusterIds)
		for _, cluster := range clusterIds {
			ids := members[cluster]
			if len(ids) >= minSize || len(ids) == 0 {
				continue
			}
			// Count edges into each neighboring cluster.
			votes := make(map[int]int)
			for _, id := range ids {
				for _, n := range adj[id] {
					other := assignment[n]
					if other != cluster {
						votes[other]++
					}
				}
			}
			best, bestVotes := 0, 0
			for other, v := range votes {
				if v > bestVotes || (v == bestVotes && other < best) {
					best = other
					bestVotes = v
				}
			}
			if best == 0 {
				continue
			}
			for _, id := range ids {
				assignment[id] = best
			}
			members[best] = append(members[best], ids...)
			members[cluster] = nil
		}
	}

	return assignment
}
