package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Provider turns text into dense vectors. Implementations must return
// unit-length vectors so cosine scoring stays comparable across providers.
type Provider interface {
	Name() string
	Description() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Option pairs a provider name with its human-readable description for the
// configuration surface.
type Option struct {
	Name        string
	Description string
}

// Registry resolves embedding providers by the identifier stored in a
// workspace's retrieval configuration.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Resolve(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
	return p, nil
}

func (r *Registry) Options() []Option {
	options := make([]Option, 0, len(r.providers))
	for _, p := range r.providers {
		options = append(options, Option{Name: p.Name(), Description: p.Description()})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options
}

// normalizeVector scales a vector to unit length. Cosine distance in the
// vector stores assumes normalized inputs.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
