// Package toolserver exposes the project manager over the Model
// Context Protocol, speaking newline-delimited JSON-RPC over stdio via
// modelcontextprotocol/go-sdk's stdio transport.
package toolserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ctxengine/ctxengine/internal/manager"
	"github.com/ctxengine/ctxengine/pkg/version"
)

// MaxQueryLen bounds the query string accepted by query_project.
const MaxQueryLen = 10_000

// RateLimitCapacity and RateLimitRefillPerMinute parameterize the
// token bucket guarding index_project.
const (
	RateLimitCapacity        = 5
	RateLimitRefillPerMinute = 5
)

// Server wires the project manager to the MCP tool surface.
type Server struct {
	mcp     *mcp.Server
	manager *manager.Manager
	logger  *slog.Logger

	indexLimiter *tokenBucket
}

// New builds a Server and registers every tool.
func New(mgr *manager.Manager) *Server {
	s := &Server{
		manager:      mgr,
		logger:       slog.Default(),
		indexLimiter: newTokenBucket(RateLimitCapacity, RateLimitRefillPerMinute),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "ctxengine",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_project",
		Description: "Search the current project's indexed content with fused semantic and keyword ranking. Returns the best-matching chunks with file, line span, content type and score.",
	}, s.handleQueryProject)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_project",
		Description: "Build or rebuild the index for the current project. Rate-limited; call this after large changes rather than on every edit.",
	}, s.handleIndexProject)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_projects",
		Description: "List every project that has a stored index, regardless of whether it is currently loaded.",
	}, s.handleListProjects)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_status",
		Description: "Report whether the current project is indexed, loaded, and the state of its background watcher.",
	}, s.handleProjectStatus)

	s.logger.Debug("registered MCP tools", "count", 4)
}

// Run starts serving over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", "error", err)
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
