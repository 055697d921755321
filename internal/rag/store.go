package rag

import (
	"math"
	"sort"
	"sync"
)

type chunk struct {
	source string
	text   string
	terms  map[string]float64
	norm   float64
}

func newChunk(source, text string) chunk {
	terms := make(map[string]float64)
	for _, tok := range tokenize(text) {
		terms[tok]++
	}
	return chunk{source: source, text: text, terms: terms, norm: norm(terms)}
}

func norm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// MemoryStore keeps document chunks per session and ranks them by term-vector cosine similarity.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string][]chunk)}
}

func (s *MemoryStore) Add(sessionID, source string, texts []string) {
	if len(texts) == 0 {
		return
	}
	added := make([]chunk, 0, len(texts))
	for _, t := range texts {
		added = append(added, newChunk(source, t))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[sessionID] = append(s.chunks[sessionID], added...)
}

func (s *MemoryStore) Has(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[sessionID]) > 0
}

func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, sessionID)
}

// Query returns up to k chunk texts sharing at least one term with the query, best first.
func (s *MemoryStore) Query(sessionID, query string, k int) []string {
	q := newChunk("", query)
	if q.norm == 0 || k <= 0 {
		return nil
	}

	s.mu.RLock()
	candidates := s.chunks[sessionID]
	type scored struct {
		score float64
		idx   int
	}
	results := make([]scored, 0, len(candidates))
	for i, c := range candidates {
		if c.norm == 0 {
			continue
		}
		var dot float64
		for term, w := range q.terms {
			dot += w * c.terms[term]
		}
		if dot > 0 {
			results = append(results, scored{score: dot / (q.norm * c.norm), idx: i})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > k {
		results = results[:k]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = candidates[r.idx].text
	}
	s.mu.RUnlock()
	return out
}
