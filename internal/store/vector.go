package store

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/vuxtra/jivemcp/internal/embedding"
)

// vectorIndex wraps an in-memory HNSW graph (github.com/coder/hnsw).
// Graph nodes are keyed by the entity's table and id so a single
// namespace can index work items and memory items in one structure.
type vectorIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	// vectors mirrors what's stored in the graph so cosine similarity can
	// be recomputed exactly from the original embedding rather than from
	// hnsw's internal distance units, keeping the fusion math in
	// internal/search exact.
	vectors map[string][]float32
}

func newVectorIndex() *vectorIndex {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.CosineDistance
	return &vectorIndex{graph: g, vectors: make(map[string][]float32)}
}

// vectorKey composes the graph node key from entity kind ("work_item",
// "architecture", "troubleshoot") and id.
func vectorKey(kind, id string) string { return kind + ":" + id }

func (v *vectorIndex) Upsert(kind, id string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	key := vectorKey(kind, id)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.vectors[key]; exists {
		if len(v.vectors) == 1 {
			// Deleting the graph's only node leaves an empty layer that
			// makes the next Add panic in hnsw's dimension check, so the
			// graph is started afresh instead.
			v.graph = hnsw.NewGraph[string]()
			v.graph.Distance = hnsw.CosineDistance
		} else {
			v.graph.Delete(key)
		}
	}
	v.graph.Add(hnsw.Node[string]{Key: key, Value: vec})
	v.vectors[key] = vec
}

func (v *vectorIndex) Delete(kind, id string) {
	key := vectorKey(kind, id)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.vectors[key]; exists && len(v.vectors) == 1 {
		v.graph = hnsw.NewGraph[string]()
		v.graph.Distance = hnsw.CosineDistance
	} else {
		v.graph.Delete(key)
	}
	delete(v.vectors, key)
}

// VectorHit is one candidate returned by a vector search.
type VectorHit struct {
	Kind  string
	ID    string
	Score float32 // cosine similarity in [-1,1], not hnsw's internal distance
}

// Search returns up to k nearest neighbors to query, optionally restricted
// to a set of kinds (the content_types filter).
func (v *vectorIndex) Search(query []float32, k int, kinds map[string]bool) []VectorHit {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.vectors) == 0 || len(query) == 0 {
		return nil
	}
	// Over-fetch from hnsw since it may return neighbors outside the
	// requested kind filter; the candidate pool is re-scored exactly
	// below regardless.
	fetch := k * 4
	if fetch < 32 {
		fetch = 32
	}
	if fetch > len(v.vectors) {
		fetch = len(v.vectors)
	}
	found := v.graph.Search(query, fetch)
	hits := make([]VectorHit, 0, len(found))
	for _, n := range found {
		kind, id := splitVectorKey(n.Key)
		if kinds != nil && !kinds[kind] {
			continue
		}
		hits = append(hits, VectorHit{Kind: kind, ID: id, Score: embedding.CosineSimilarity(query, n.Value)})
	}
	return hits
}

func splitVectorKey(key string) (kind, id string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return "", key
}

// encodeVector serializes a []float32 as little-endian bytes for the
// SQLite BLOB column.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
