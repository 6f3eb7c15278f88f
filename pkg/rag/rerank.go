package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"rag-workspace-be/pkg/llm"
)

// Reranker reorders retrieval candidates by a second scoring pass.
type Reranker interface {
	Name() string
	Description() string
	Rerank(ctx context.Context, query string, results []Result) ([]Result, error)
}

// RerankerOption pairs a reranker name with its human-readable description
// for the configuration surface.
type RerankerOption struct {
	Name        string
	Description string
}

type RerankerRegistry struct {
	rerankers map[string]Reranker
}

func NewRerankerRegistry() *RerankerRegistry {
	return &RerankerRegistry{rerankers: make(map[string]Reranker)}
}

func (r *RerankerRegistry) Register(rr Reranker) {
	r.rerankers[rr.Name()] = rr
}

func (r *RerankerRegistry) Resolve(name string) (Reranker, error) {
	rr, ok := r.rerankers[name]
	if !ok {
		return nil, fmt.Errorf("unknown reranker: %s", name)
	}
	return rr, nil
}

func (r *RerankerRegistry) Options() []RerankerOption {
	options := make([]RerankerOption, 0, len(r.rerankers))
	for _, rr := range r.rerankers {
		options = append(options, RerankerOption{Name: rr.Name(), Description: rr.Description()})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options
}

// Bm25Reranker scores candidates lexically against the query. The candidate
// set itself is the corpus for the idf statistics.
type Bm25Reranker struct {
	k1 float64
	b  float64
}

func NewBm25Reranker() *Bm25Reranker {
	return &Bm25Reranker{k1: 1.5, b: 0.75}
}

func (r *Bm25Reranker) Name() string { return "bm25" }

func (r *Bm25Reranker) Description() string {
	return "Lexical BM25 scoring against the query over the candidate set"
}

func (r *Bm25Reranker) Rerank(ctx context.Context, query string, results []Result) ([]Result, error) {
	if len(results) == 0 {
		return results, nil
	}

	queryTerms := tokenize(query)
	docs := make([][]string, len(results))
	totalLen := 0
	for i, res := range results {
		docs[i] = tokenize(res.Text)
		totalLen += len(docs[i])
	}
	avgLen := float64(totalLen) / float64(len(docs))
	if avgLen == 0 {
		return results, nil
	}

	// Document frequency per query term over the candidate corpus.
	df := make(map[string]int)
	for _, term := range queryTerms {
		for _, doc := range docs {
			for _, w := range doc {
				if w == term {
					df[term]++
					break
				}
			}
		}
	}

	n := float64(len(docs))
	reranked := make([]Result, len(results))
	copy(reranked, results)

	for i := range reranked {
		tf := make(map[string]int)
		for _, w := range docs[i] {
			tf[w]++
		}
		docLen := float64(len(docs[i]))

		var score float64
		for _, term := range queryTerms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			score += idf * (f * (r.k1 + 1)) / (f + r.k1*(1-r.b+r.b*docLen/avgLen))
		}
		reranked[i].Score = score
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}

// CrossReranker asks the generation model to score each candidate's relevance
// to the query on a 0-10 scale. Unparseable scores keep the original score.
type CrossReranker struct {
	provider llm.Provider
}

func NewCrossReranker(provider llm.Provider) *CrossReranker {
	return &CrossReranker{provider: provider}
}

func (r *CrossReranker) Name() string { return "cross" }

func (r *CrossReranker) Description() string {
	return "Generation model scores each candidate's relevance to the query"
}

const crossScorePrompt = `Rate how relevant the passage is to the query on a scale of 0 to 10.
Answer with a single number only.

Query: %s

Passage: %s`

func (r *CrossReranker) Rerank(ctx context.Context, query string, results []Result) ([]Result, error) {
	reranked := make([]Result, len(results))
	copy(reranked, results)

	for i := range reranked {
		raw, err := r.provider.Generate(ctx, fmt.Sprintf(crossScorePrompt, query, reranked[i].Text), llm.WithTemperature(0.0))
		if err != nil {
			return nil, fmt.Errorf("cross scoring: %w", err)
		}
		if score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			reranked[i].Score = score / 10.0
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}

// RrfReranker fuses the incoming (similarity) ranking with a bm25 ranking by
// reciprocal rank fusion.
type RrfReranker struct {
	bm25 *Bm25Reranker
	k    float64
}

func NewRrfReranker() *RrfReranker {
	return &RrfReranker{bm25: NewBm25Reranker(), k: 60}
}

func (r *RrfReranker) Name() string { return "rrf" }

func (r *RrfReranker) Description() string {
	return "Reciprocal rank fusion of the similarity and BM25 rankings"
}

func (r *RrfReranker) Rerank(ctx context.Context, query string, results []Result) ([]Result, error) {
	if len(results) == 0 {
		return results, nil
	}

	lexical, err := r.bm25.Rerank(ctx, query, results)
	if err != nil {
		return nil, err
	}

	key := func(res Result) string {
		if res.ChunkId != nil {
			return res.ChunkId.String()
		}
		if res.NodeId != nil {
			return res.NodeId.String()
		}
		return res.Text
	}

	fused := make(map[string]float64)
	for rank, res := range results {
		fused[key(res)] += 1.0 / (r.k + float64(rank+1))
	}
	for rank, res := range lexical {
		fused[key(res)] += 1.0 / (r.k + float64(rank+1))
	}

	reranked := make([]Result, len(results))
	copy(reranked, results)
	for i := range reranked {
		reranked[i].Score = fused[key(reranked[i])]
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}
