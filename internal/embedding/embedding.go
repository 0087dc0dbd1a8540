// Package embedding provides a local, in-process, deterministic text
// embedder: a hashing-trick bag-of-words vectorizer. It needs no model
// weights or network access, and identical input always produces an
// identical vector.
package embedding

import (
	"hash/fnv"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

// Dimension is the fixed output dimension.
const Dimension = 256

// ModelID is the stable identifier for this embedding strategy. It
// changes only if the hashing/normalization scheme changes.
const ModelID = "jivemcp-hashing-v1-d256"

// maxTokens bounds the input truncated deterministically (first N tokens,
// no random sampling).
const maxTokens = 4096

// Engine embeds text into fixed-dimension, unit-L2-normalized vectors.
// It is stateless and safe for concurrent use by multiple goroutines,
// so a single shared instance serves the whole process.
type Engine struct{}

// New constructs the embedding engine.
func New() *Engine { return &Engine{} }

// ModelID returns the stable embedding model identifier.
func (e *Engine) ModelID() string { return ModelID }

// Health reports dimension and model identity for the startup probe.
func (e *Engine) Health() (dimension int, modelID string) {
	return Dimension, ModelID
}

// Embed converts text into a unit-L2-normalized vector of Dimension.
// Empty text, or text that yields no tokens, maps to the all-zero vector.
func (e *Engine) Embed(text string) ([]float32, error) {
	if text == "" {
		return make([]float32, Dimension), nil
	}
	tokens := tokenize(text)
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}
	vec := make([]float64, Dimension)
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(Dimension))
		// Sign derived from a second, independent bit of the hash so
		// that opposite tokens don't simply accumulate in magnitude.
		sign := 1.0
		if (sum>>32)&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}
	return normalize(vec), nil
}

// EmbedBatch embeds multiple texts concurrently; order is preserved.
func (e *Engine) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, t := range texts {
		i, t := i, t
		g.Go(func() error {
			v, err := e.Embed(t)
			if err != nil {
				return apperr.Wrap(apperr.EmbeddingError, "embedding batch item failed", err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

func normalize(vec []float64) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// CosineSimilarity assumes both vectors are already unit-normalized, so
// cosine similarity reduces to the inner product.
func CosineSimilarity(a, b []float32) float32 {
	var dot float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot
}
