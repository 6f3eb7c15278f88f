package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// NodeCandidate is a resolved entity ready to be persisted as a graph node.
type NodeCandidate struct {
	CanonicalLabel string
	Label          string
	Type           string
}

// EdgeCandidate references nodes by canonical label; ids are assigned at
// persistence time.
type EdgeCandidate struct {
	SubjectCanonical string
	Relation         string
	ObjectCanonical  string
	Weight           float64
}

// Result is the merged extraction output for one document.
type Result struct {
	Nodes        []NodeCandidate
	Edges        []EdgeCandidate
	TotalChunks  int
	FailedChunks int
}

// Collector runs entity and relation extraction chunk by chunk and merges
// the candidates. Extraction is best effort: a failing chunk is counted and
// skipped, and only a run where every chunk failed returns an error.
type Collector struct {
	entities  EntityExtractor
	relations RelationExtractor
	onError   func(chunkIndex int, err error)
}

func NewCollector(entities EntityExtractor, relations RelationExtractor, onError func(int, error)) *Collector {
	if onError == nil {
		onError = func(int, error) {}
	}
	return &Collector{
		entities:  entities,
		relations: relations,
		onError:   onError,
	}
}

func (c *Collector) Collect(ctx context.Context, chunks []string) (*Result, error) {
	result := &Result{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	nodesByCanonical := make(map[string]NodeCandidate)
	edgesByKey := make(map[string]EdgeCandidate)
	var lastErr error

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entities, err := c.entities.Extract(ctx, chunk)
		if err != nil {
			result.FailedChunks++
			lastErr = err
			c.onError(i, err)
			continue
		}

		for _, ent := range entities {
			canonical := CanonicalLabel(ent.Label)
			if canonical == "" {
				continue
			}
			existing, ok := nodesByCanonical[canonical]
			if !ok {
				nodesByCanonical[canonical] = NodeCandidate{
					CanonicalLabel: canonical,
					Label:          ent.Label,
					Type:           ent.Type,
				}
			} else if existing.Type == "" && ent.Type != "" {
				existing.Type = ent.Type
				nodesByCanonical[canonical] = existing
			}
		}

		triples, err := c.relations.Extract(ctx, chunk, entities)
		if err != nil {
			// Entities landed, so the chunk is not a total loss; relations
			// for it are simply missing.
			c.onError(i, err)
			continue
		}

		for _, t := range triples {
			subject := CanonicalLabel(t.Subject)
			object := CanonicalLabel(t.Object)
			if subject == "" || object == "" || subject == object {
				continue
			}
			if _, ok := nodesByCanonical[subject]; !ok {
				nodesByCanonical[subject] = NodeCandidate{CanonicalLabel: subject, Label: t.Subject}
			}
			if _, ok := nodesByCanonical[object]; !ok {
				nodesByCanonical[object] = NodeCandidate{CanonicalLabel: object, Label: t.Object}
			}
			key := subject + "\x00" + t.Relation + "\x00" + object
			existing, ok := edgesByKey[key]
			if !ok || t.Weight > existing.Weight {
				edgesByKey[key] = EdgeCandidate{
					SubjectCanonical: subject,
					Relation:         t.Relation,
					ObjectCanonical:  object,
					Weight:           t.Weight,
				}
			}
		}
	}

	if result.FailedChunks == result.TotalChunks {
		if lastErr == nil {
			lastErr = errors.New("extraction produced nothing")
		}
		return nil, fmt.Errorf("extraction failed on all %d chunks: %w", result.TotalChunks, lastErr)
	}

	for _, node := range nodesByCanonical {
		result.Nodes = append(result.Nodes, node)
	}
	sort.Slice(result.Nodes, func(i, j int) bool {
		return result.Nodes[i].CanonicalLabel < result.Nodes[j].CanonicalLabel
	})
	for _, edge := range edgesByKey {
		result.Edges = append(result.Edges, edge)
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		if result.Edges[i].SubjectCanonical != result.Edges[j].SubjectCanonical {
			return result.Edges[i].SubjectCanonical < result.Edges[j].SubjectCanonical
		}
		return result.Edges[i].ObjectCanonical < result.Edges[j].ObjectCanonical
	})

	return result, nil
}
