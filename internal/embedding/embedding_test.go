package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDeterministic(t *testing.T) {
	e := New()
	v1, err := e.Embed("React hooks patterns for data fetching")
	require.NoError(t, err)
	v2, err := e.Embed("React hooks patterns for data fetching")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestEmbedUnitNorm(t *testing.T) {
	e := New()
	v, err := e.Embed("infinite render loop useEffect dependency array")
	require.NoError(t, err)
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	assert.InDelta(t, 1.0, norm, 1e-6)
}

func TestEmbedDimension(t *testing.T) {
	e := New()
	v, err := e.Embed("anything")
	require.NoError(t, err)
	assert.Len(t, v, Dimension)
	assert.GreaterOrEqual(t, Dimension, 128)
}

func TestEmbedEmptyText(t *testing.T) {
	e := New()
	v, err := e.Embed("")
	require.NoError(t, err)
	assert.Len(t, v, Dimension)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	e := New()
	texts := []string{"alpha", "beta", "gamma"}
	batch, err := e.EmbedBatch(texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i, text := range texts {
		single, err := e.Embed(text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestCosineSimilaritySelf(t *testing.T) {
	e := New()
	v, err := e.Embed("a stable phrase")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(CosineSimilarity(v, v)), 1e-5)
}

func TestHealthReportsDimensionAndModelID(t *testing.T) {
	e := New()
	dim, id := e.Health()
	assert.Equal(t, Dimension, dim)
	assert.Equal(t, ModelID, id)
}
