// Package httpapi hosts jivemcp's HTTP companion surface: the
// Streamable HTTP MCP transport plus REST routes for namespace
// administration, health, and a synchronous tool-execute shortcut that
// don't need a full MCP client to exercise.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/service"
)

// Server hosts the MCP Streamable HTTP endpoint and the companion REST API.
type Server struct {
	svc      *service.Service
	registry *mcp.Registry
	mcpHTTP  *mcp.HTTPServer
	logger   *slog.Logger
}

// New constructs the companion HTTP server. registry must be the same
// Registry used to build mcpServer, so /tools/execute can dispatch
// without going through JSON-RPC framing.
func New(svc *service.Service, registry *mcp.Registry, mcpServer *mcp.Server, logger *slog.Logger) *Server {
	return &Server{
		svc:      svc,
		registry: registry,
		mcpHTTP:  mcp.NewHTTPServer(mcpServer, svc.Config.Transport.CORSOrigins, logger),
		logger:   logger,
	}
}

// ListenAndServe mounts every route and blocks serving on addr until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.mcpHTTP.Handler())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/namespaces", s.handleNamespaces)
	mux.HandleFunc("/namespaces/", s.handleNamespaceByName)
	mux.HandleFunc("/tools/execute", s.handleToolsExecute)

	srv := &http.Server{Addr: addr, Handler: withCORS(mux, svcCORSOrigins(s.svc))}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func svcCORSOrigins(svc *service.Service) string {
	return svc.Config.Transport.CORSOrigins
}

func withCORS(next http.Handler, origins string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if origins == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				for _, a := range strings.Split(origins, ",") {
					if strings.TrimSpace(a) == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						break
					}
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Namespace")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports a fixed "ok" status, the list of known namespaces,
// and the embedding engine's model id and dimension. It does not open or
// probe any namespace's store, so no per-namespace store health is
// reported.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	namespaces, err := s.svc.Namespace.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	dim, modelID := s.svc.Embed.Health()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"namespaces":        namespaces,
		"embedding_model_id": modelID,
		"embedding_dim":      dim,
	})
}

// handleNamespaces implements GET (list) and POST (create) /namespaces.
func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		namespaces, err := s.svc.Namespace.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"namespaces": namespaces})
	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, apperr.Wrap(apperr.ValidationError, "invalid request body", err))
			return
		}
		if err := model.ValidateNamespace(body.Name); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.svc.Namespace.Create(body.Name); err != nil {
			writeError(w, httpStatusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"name": body.Name})
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

// handleNamespaceByName implements DELETE /namespaces/{ns}.
func (s *Server) handleNamespaceByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	ns := strings.TrimPrefix(r.URL.Path, "/namespaces/")
	if ns == "" {
		writeError(w, http.StatusBadRequest, apperr.New(apperr.ValidationError, "namespace name is required"))
		return
	}
	if err := s.svc.Namespace.Delete(ns); err != nil {
		writeError(w, httpStatusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToolsExecute implements POST /tools/execute: a synchronous
// REST shortcut onto the same registry the MCP transport dispatches
// through, taking the namespace from the X-Namespace header.
func (s *Server) handleToolsExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ToolName   string          `json:"tool_name"`
		Parameters json.RawMessage `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, apperr.Wrap(apperr.ValidationError, "invalid request body", err))
		return
	}

	tool := s.registry.Get(body.ToolName)
	if tool == nil {
		writeError(w, http.StatusNotFound, apperr.Newf(apperr.UnknownTool, "unknown tool %q", body.ToolName))
		return
	}

	params := body.Parameters
	if ns := r.Header.Get("X-Namespace"); ns != "" {
		params = mcp.InjectNamespace(params, ns)
	}

	result, err := tool.Execute(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    string(apperr.CodeOf(err)),
			"message": err.Error(),
		},
	})
}

func httpStatusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.NotFound, apperr.NamespaceUnknown:
		return http.StatusNotFound
	case apperr.ValidationError, apperr.NamespaceInvalid, apperr.SlugInvalid:
		return http.StatusBadRequest
	case apperr.SlugDuplicate, apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
