package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			DataDir:              t.TempDir(),
			DefaultNamespace:     "default",
			AutoCreateNamespaces: true,
			MaxOpenNamespaces:    4,
		},
		Embedding: config.EmbeddingConfig{ModelID: "jivemcp-hashing-v1-d256"},
		Worker:    config.WorkerConfig{PoolSize: 2, RequestTimeoutSeconds: 5},
		Transport: config.TransportConfig{Mode: "stdio"},
		Log:       config.LogConfig{Level: "info"},
	}
}

func TestNewOpensDefaultNamespaceOnHandle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(testConfig(t), logger)
	require.NoError(t, err)
	defer svc.Close()

	ns, err := svc.DefaultNamespace("")
	require.NoError(t, err)
	assert.Equal(t, "default", ns)

	st, ctx, release, err := svc.Handle(context.Background(), ns)
	require.NoError(t, err)
	defer release()
	assert.NotNil(t, st)
	assert.NotNil(t, ctx)
}

func TestDefaultNamespacePrefersExplicitRequest(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(testConfig(t), logger)
	require.NoError(t, err)
	defer svc.Close()

	ns, err := svc.DefaultNamespace("team-a")
	require.NoError(t, err)
	assert.Equal(t, "team-a", ns)
}
