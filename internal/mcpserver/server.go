// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz tools for LLM integration via stdio transport.
// All tools are read-only: documents change on disk, never through MCP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/storage"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	eng   *engine.Engine
}

// New creates a new MCP server with all Laguz tools registered.
func New(store storage.Provider, eng *engine.Engine) *Server {
	s := &Server{store: store, eng: eng}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document content, titles, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a Markdown document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Workspace-relative path (e.g. folder/note.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents or documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_similar_documents",
		mcp.WithDescription("Find documents similar to the specified one by shared links and tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id to find similar documents for")),
	), s.getSimilar)

	s.mcp.AddTool(mcp.NewTool("list_broken_links",
		mcp.WithDescription("List all references whose target document does not exist."),
	), s.listBrokenLinks)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the hierarchical tag tree with usage counts."),
	), s.listTags)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.eng.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ids []string
	for _, m := range metas {
		ids = append(ids, m.ID)
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.eng.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, b := range bl {
		lines = append(lines, fmt.Sprintf("%s (%d)", b.Source, b.Occurrences))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getSimilar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sim, err := s.eng.Similar(ctx, id, 10)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sim) == 0 {
		return mcp.NewToolResultText("no similar documents found"), nil
	}
	out, _ := json.MarshalIndent(sim, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listBrokenLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	broken, err := s.eng.BrokenLinks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(broken) == 0 {
		return mcp.NewToolResultText("no broken links"), nil
	}
	var lines []string
	for _, b := range broken {
		lines = append(lines, fmt.Sprintf("%s -> [[%s]]", b.Source, b.Target))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := s.eng.Tags().All()
	if len(all) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	var lines []string
	for _, t := range all {
		lines = append(lines, fmt.Sprintf("%s%s (%d)", strings.Repeat("  ", t.Level), t.Name, t.UsageCount))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
