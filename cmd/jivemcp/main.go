// Command jivemcp runs the JIVE MCP server: a namespace-scoped,
// embedded-storage developer-workflow knowledge platform exposed over
// stdio JSON-RPC (MCP) and an optional HTTP companion transport.
//
// All persistence is local — one SQLite database plus in-memory vector
// and keyword indexes per namespace, rooted at the configured data
// directory. No external services are required.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vuxtra/jivemcp/internal/config"
	"github.com/vuxtra/jivemcp/internal/httpapi"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/tools/execution"
	"github.com/vuxtra/jivemcp/internal/tools/hierarchy"
	"github.com/vuxtra/jivemcp/internal/tools/memory"
	"github.com/vuxtra/jivemcp/internal/tools/search"
	syncdata "github.com/vuxtra/jivemcp/internal/tools/sync"
	"github.com/vuxtra/jivemcp/internal/tools/workitem"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jivemcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "path to jivemcp.toml (default: search JIVEMCP_CONFIG, ./jivemcp.toml, ~/.config/jivemcp/jivemcp.toml)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("jivemcp " + Version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	logger.Info("starting jivemcp", "version", Version, "transport", cfg.Transport.Mode, "data_dir", cfg.Store.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("constructing service: %w", err)
	}
	defer svc.Close()

	registry := mcp.NewRegistry()
	registry.Register(workitem.NewManageTool(svc))
	registry.Register(workitem.NewGetTool(svc))
	registry.Register(search.NewTool(svc))
	registry.Register(hierarchy.NewGetTool(svc))
	registry.Register(hierarchy.NewReorderTool(svc))
	registry.Register(execution.NewExecuteTool(svc))
	registry.Register(execution.NewProgressTool(svc))
	registry.Register(syncdata.NewTool(svc))
	registry.Register(memory.NewTool(svc))

	server := mcp.NewServer(registry, mcp.ServerInfo{
		Name:    "jivemcp",
		Version: Version,
	}, logger)

	if cfg.Transport.Mode == "http" {
		httpSrv := httpapi.New(svc, registry, server, logger)
		return httpSrv.ListenAndServe(ctx, cfg.Transport.Host+":"+cfg.Transport.Port)
	}

	return server.Run(ctx)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
