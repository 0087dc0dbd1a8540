// Package service wires together the process-wide dependencies every
// tool needs — namespace storage, embeddings, sync, and a bounded worker
// pool — constructed once in main and injected into each tool: one
// long-lived object holding shared configuration and open handles,
// handed out per call instead of rebuilt per request.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vuxtra/jivemcp/internal/config"
	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/namespace"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/syncengine"
)

// Service is the shared dependency set injected into every MCP tool and
// HTTP handler.
type Service struct {
	Config    *config.Config
	Logger    *slog.Logger
	Namespace *namespace.Manager
	Embed     *embedding.Engine
	Sync      *syncengine.Engine

	sem            *semaphore.Weighted
	requestTimeout time.Duration
}

// New constructs a Service from a loaded Config and logger. It opens the
// namespace manager rooted at cfg.Store.DataDir, sized per
// cfg.Store.MaxOpenNamespaces, and bounds concurrent store/embedding work
// at cfg.Worker.PoolSize.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	nsMgr, err := namespace.New(cfg.Store.DataDir, cfg.Store.MaxOpenNamespaces, cfg.Store.AutoCreateNamespaces)
	if err != nil {
		return nil, err
	}
	embed := embedding.New()
	return &Service{
		Config:         cfg,
		Logger:         logger,
		Namespace:      nsMgr,
		Embed:          embed,
		Sync:           syncengine.New(embed),
		sem:            semaphore.NewWeighted(int64(cfg.Worker.PoolSize)),
		requestTimeout: time.Duration(cfg.Worker.RequestTimeoutSeconds) * time.Second,
	}, nil
}

// Handle resolves ns to its open store.Store, acquiring a worker-pool
// slot for the duration of the caller's work and applying the
// configured request timeout. The returned release func must be called
// exactly once, typically via defer, after the store call completes.
func (s *Service) Handle(ctx context.Context, ns string) (*store.Store, context.Context, func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, func() {}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	release := func() {
		cancel()
		s.sem.Release(1)
	}

	st, err := s.Namespace.Handle(callCtx, ns)
	if err != nil {
		release()
		return nil, nil, func() {}, err
	}
	return st, callCtx, release, nil
}

// DefaultNamespace resolves a request-supplied namespace against the
// configured default.
func (s *Service) DefaultNamespace(requested string) (string, error) {
	return namespace.Resolve(requested, s.Config.Store.DefaultNamespace)
}

// Close shuts down every open namespace handle, for graceful shutdown.
func (s *Service) Close() {
	s.Namespace.Close()
}
