package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Entity is one candidate node found in a chunk, before resolution.
type Entity struct {
	Label string `json:"label"`
	Type  string `json:"type"`
	Span  string `json:"span,omitempty"`
}

// Triple is a directed subject-relation-object candidate edge. Weight is the
// extractor's confidence in [0,1].
type Triple struct {
	Subject  string  `json:"subject"`
	Relation string  `json:"relation"`
	Object   string  `json:"object"`
	Weight   float64 `json:"weight"`
}

// EntityExtractor finds candidate entities in a chunk of text.
type EntityExtractor interface {
	Name() string
	Description() string
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// RelationExtractor finds triples between known entities in a chunk.
type RelationExtractor interface {
	Name() string
	Description() string
	Extract(ctx context.Context, text string, entities []Entity) ([]Triple, error)
}

// Option pairs a strategy name with its human-readable description for the
// configuration surface.
type Option struct {
	Name        string
	Description string
}

// Registry holds the configurable extraction and clustering strategies.
type Registry struct {
	entityExtractors   map[string]EntityExtractor
	relationExtractors map[string]RelationExtractor
	clusterers         map[string]Clusterer
}

func NewRegistry() *Registry {
	return &Registry{
		entityExtractors:   make(map[string]EntityExtractor),
		relationExtractors: make(map[string]RelationExtractor),
		clusterers:         make(map[string]Clusterer),
	}
}

func (r *Registry) RegisterEntityExtractor(e EntityExtractor) {
	r.entityExtractors[e.Name()] = e
}

func (r *Registry) RegisterRelationExtractor(e RelationExtractor) {
	r.relationExtractors[e.Name()] = e
}

func (r *Registry) RegisterClusterer(c Clusterer) {
	r.clusterers[c.Name()] = c
}

func (r *Registry) ResolveEntityExtractor(name string) (EntityExtractor, error) {
	e, ok := r.entityExtractors[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity extractor: %s", name)
	}
	return e, nil
}

func (r *Registry) ResolveRelationExtractor(name string) (RelationExtractor, error) {
	e, ok := r.relationExtractors[name]
	if !ok {
		return nil, fmt.Errorf("unknown relation extractor: %s", name)
	}
	return e, nil
}

func (r *Registry) ResolveClusterer(name string) (Clusterer, error) {
	c, ok := r.clusterers[name]
	if !ok {
		return nil, fmt.Errorf("unknown clustering algorithm: %s", name)
	}
	return c, nil
}

func (r *Registry) EntityExtractorOptions() []Option {
	options := make([]Option, 0, len(r.entityExtractors))
	for _, e := range r.entityExtractors {
		options = append(options, Option{Name: e.Name(), Description: e.Description()})
	}
	return sortOptions(options)
}

func (r *Registry) RelationExtractorOptions() []Option {
	options := make([]Option, 0, len(r.relationExtractors))
	for _, e := range r.relationExtractors {
		options = append(options, Option{Name: e.Name(), Description: e.Description()})
	}
	return sortOptions(options)
}

func (r *Registry) ClustererOptions() []Option {
	options := make([]Option, 0, len(r.clusterers))
	for _, c := range r.clusterers {
		options = append(options, Option{Name: c.Name(), Description: c.Description()})
	}
	return sortOptions(options)
}

func sortOptions(options []Option) []Option {
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options
}

// CanonicalLabel is the merge key for entity resolution: lowercased with
// whitespace collapsed to single spaces.
func CanonicalLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
