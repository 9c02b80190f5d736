package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/tags"
	"github.com/starford/laguz/internal/testutil"
)

func testServer(t *testing.T, files map[string]string) *Server {
	t.Helper()

	_, store := testutil.TestWorkspace(t, files)
	db := testutil.TestDB(t)

	eng := engine.New(store, db, tags.NewHierarchy(),
		engine.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))))
	t.Cleanup(eng.Close)
	if _, err := eng.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	return New(store, eng)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "get_similar_documents":
		result, err = srv.getSimilar(ctx, req)
	case "list_broken_links":
		result, err = srv.listBrokenLinks(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadDocument(t *testing.T) {
	srv := testServer(t, map[string]string{"test.md": "# Test\nHello"})

	r := callTool(t, srv, "read_document", map[string]interface{}{"id": "test.md"})
	if text := resultText(r); text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "read_document", map[string]interface{}{"id": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListDocuments(t *testing.T) {
	srv := testServer(t, map[string]string{"a.md": "a", "sub/b.md": "b"})

	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "a.md") || !strings.Contains(text, "sub/b.md") {
		t.Errorf("list = %q", text)
	}
}

func TestSearchDocuments(t *testing.T) {
	srv := testServer(t, map[string]string{
		"a.md": "# A\n\nkubernetes notes",
		"b.md": "# B\n\nnothing",
	})

	r := callTool(t, srv, "search_documents", map[string]interface{}{"query": "kubernetes"})
	if text := resultText(r); !strings.Contains(text, "a.md") {
		t.Errorf("search = %q", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t, map[string]string{
		"a.md": "links to [[b]]",
		"b.md": "# B",
	})

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "b.md"})
	if text := resultText(r); !strings.Contains(text, "a.md") {
		t.Errorf("backlinks = %q", text)
	}
}

func TestListBrokenLinks(t *testing.T) {
	srv := testServer(t, map[string]string{"a.md": "see [[ghost]]"})

	r := callTool(t, srv, "list_broken_links", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, "[[ghost]]") {
		t.Errorf("broken links = %q", text)
	}
}

func TestGetSimilarDocuments(t *testing.T) {
	srv := testServer(t, map[string]string{
		"hub.md": "# Hub",
		"a.md":   "[[hub]] #go",
		"b.md":   "[[hub]] #go",
	})

	r := callTool(t, srv, "get_similar_documents", map[string]interface{}{"id": "a.md"})
	if text := resultText(r); !strings.Contains(text, "b.md") {
		t.Errorf("similar = %q", text)
	}
}

func TestListTags(t *testing.T) {
	srv := testServer(t, map[string]string{"a.md": "#proj/core"})

	r := callTool(t, srv, "list_tags", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "proj (1)") || !strings.Contains(text, "proj/core (1)") {
		t.Errorf("tags = %q", text)
	}
}
