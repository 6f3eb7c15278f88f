package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/pkg/graphstore"
)

// GraphRetriever resolves query terms to seed nodes by label similarity,
// expands the neighborhood up to the configured hop limit, and linearizes
// the visited subgraph into snippets ordered by traversal distance then edge
// confidence.
type GraphRetriever struct {
	store    *graphstore.Store
	maxHops  int
	maxNodes int
}

func NewGraphRetriever(store *graphstore.Store, maxHops, maxNodes int) *GraphRetriever {
	if maxHops <= 0 {
		maxHops = 2
	}
	return &GraphRetriever{
		store:    store,
		maxHops:  maxHops,
		maxNodes: maxNodes,
	}
}

func (r *GraphRetriever) Retrieve(ctx context.Context, workspaceId uuid.UUID, query string, topK int) (*Retrieval, error) {
	if topK <= 0 {
		topK = 5
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return noContext("query has no searchable terms"), nil
	}

	var seeds []*entity.GraphNode
	seen := make(map[uuid.UUID]bool)
	for _, term := range terms {
		nodes, err := r.store.FindSeeds(ctx, workspaceId, term, 3)
		if err != nil {
			return nil, fmt.Errorf("%w: seed lookup: %v", apperror.ErrRetrieval, err)
		}
		for _, node := range nodes {
			if !seen[node.Id] {
				seen[node.Id] = true
				seeds = append(seeds, node)
			}
		}
	}
	if len(seeds) == 0 {
		return noContext("no graph nodes match the query terms"), nil
	}

	nb, err := r.store.Neighbors(ctx, workspaceId, seeds, r.maxHops, r.maxNodes)
	if err != nil {
		return nil, fmt.Errorf("%w: traversal: %v", apperror.ErrRetrieval, err)
	}

	results := linearize(nb)
	if len(results) == 0 {
		return noContext("matched nodes have no connected facts"), nil
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return &Retrieval{Results: results}, nil
}

// linearize renders each edge of the visited subgraph as one textual fact.
// Distance of a fact is the nearer endpoint's hop count; ordering is distance
// ascending, then weight descending.
func linearize(nb *graphstore.Neighborhood) []Result {
	nodesById := make(map[uuid.UUID]*entity.GraphNode, len(nb.Nodes))
	for _, node := range nb.Nodes {
		nodesById[node.Id] = node
	}

	type fact struct {
		result   Result
		distance int
		weight   float64
	}
	var facts []fact

	for _, edge := range nb.Edges {
		source, okS := nodesById[edge.SourceNodeId]
		target, okT := nodesById[edge.TargetNodeId]
		if !okS || !okT {
			continue
		}
		distance := nb.Distances[edge.SourceNodeId]
		if d := nb.Distances[edge.TargetNodeId]; d < distance {
			distance = d
		}

		var documentId uuid.UUID
		if len(edge.DocumentIds) > 0 {
			documentId = edge.DocumentIds[0]
		}
		nodeId := edge.SourceNodeId

		facts = append(facts, fact{
			result: Result{
				Text:       fmt.Sprintf("%s %s %s", source.Label, edge.Relation, target.Label),
				Score:      edge.Weight / float64(distance+1),
				DocumentId: documentId,
				NodeId:     &nodeId,
			},
			distance: distance,
			weight:   edge.Weight,
		})
	}

	// Isolated matched nodes still surface as bare mentions so a seed hit
	// with no edges is not silently dropped.
	if len(facts) == 0 {
		for _, node := range nb.Nodes {
			if nb.Distances[node.Id] != 0 {
				continue
			}
			var documentId uuid.UUID
			if len(node.DocumentIds) > 0 {
				documentId = node.DocumentIds[0]
			}
			nodeId := node.Id
			facts = append(facts, fact{
				result: Result{
					Text:       node.Label,
					Score:      0.5,
					DocumentId: documentId,
					NodeId:     &nodeId,
				},
			})
		}
	}

	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].distance != facts[j].distance {
			return facts[i].distance < facts[j].distance
		}
		return facts[i].weight > facts[j].weight
	})

	results := make([]Result, len(facts))
	for i, f := range facts {
		results[i] = f.result
	}
	return results
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "how": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "to": true, "was": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "with": true, "does": true, "do": true, "did": true,
}

// queryTerms keeps the content-bearing words of the query.
func queryTerms(query string) []string {
	var terms []string
	for _, word := range tokenize(query) {
		if len(word) < 2 || stopwords[word] {
			continue
		}
		terms = append(terms, word)
	}
	if len(terms) > 8 {
		terms = terms[:8]
	}
	return terms
}
