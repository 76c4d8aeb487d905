// Package mcpserver exposes the catalog navigator as MCP tools over stdio, so
// an assistant can browse, search, edit and check a fault catalog.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/coherence"
	"github.com/agentic-research/faultcat/internal/navigator"
)

const (
	serverName    = "faultcat"
	serverVersion = "0.1.0"
)

// Server hosts the MCP server.
type Server struct {
	mcpServer *server.MCPServer
}

// BrowseInput selects a file and language.
type BrowseInput struct {
	Path string `json:"path"`
	Lang string `json:"lang"`
}

// BrowseResult is the column chain down to Path.
type BrowseResult struct {
	Columns []navigator.Column `json:"columns"`
	Error   string             `json:"error,omitempty"`
}

// SearchInput is a description search.
type SearchInput struct {
	Query string `json:"query"`
	Lang  string `json:"lang"`
}

// SearchResult lists matching entries.
type SearchResult struct {
	Hits []navigator.Hit `json:"hits"`
}

// EditInput changes one entry. Omitted fields are left alone.
type EditInput struct {
	Path        string  `json:"path"`
	Lang        string  `json:"lang"`
	Index       int     `json:"index"`
	Description *string `json:"description"`
	Expandable  *bool   `json:"expandable"`
}

// CheckInput controls a coherence run.
type CheckInput struct {
	Quick bool `json:"quick"`
}

// CheckResult is a coherence report with its one-line summary.
type CheckResult struct {
	OK      bool              `json:"ok"`
	Summary string            `json:"summary"`
	Report  *coherence.Report `json:"report"`
}

// New registers the tools over nav.
func New(nav *navigator.Navigator) *Server {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	s.AddTool(browseTool(), browseHandler(nav))
	s.AddTool(searchTool(), searchHandler(nav))
	s.AddTool(editTool(), editHandler(nav))
	s.AddTool(checkTool(), checkHandler(coherence.New(nav.Store())))
	return &Server{mcpServer: s}
}

// Serve runs the server on stdio until the client disconnects.
func (s *Server) Serve() error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

func langArg() mcp.ToolOption {
	return mcp.WithString("lang",
		mcp.Description("Catalog language: fr, en or es"),
		mcp.Enum(string(api.French), string(api.English), string(api.Spanish)),
		mcp.DefaultString(string(api.French)),
	)
}

func browseTool() mcp.Tool {
	return mcp.NewTool("catalog_browse",
		mcp.WithDescription("List the fault entries of every file from the top level down to a path"),
		mcp.WithString("path",
			mcp.Description("Comma separated level IDs, e.g. 0,3,255,255; defaults to the top file"),
		),
		langArg(),
	)
}

func browseHandler(nav *navigator.Navigator) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in BrowseInput
		if err := req.BindArguments(&in); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid browse arguments", err), nil
		}
		p, lang, err := target(in.Path, in.Lang)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("invalid browse arguments", err), nil
		}
		cols, err := nav.Columns(p, lang)
		res := BrowseResult{Columns: cols}
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) || len(cols) == 0 {
				return mcp.NewToolResultErrorFromErr("browse failed", err), nil
			}
			res.Error = err.Error()
		}
		return mcp.NewToolResultStructuredOnly(res), nil
	}
}

func searchTool() mcp.Tool {
	return mcp.NewTool("catalog_search",
		mcp.WithDescription("Find fault descriptions containing a text, ignoring case and accents"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
		langArg(),
	)
}

func searchHandler(nav *navigator.Navigator) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in SearchInput
		if err := req.BindArguments(&in); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid search arguments", err), nil
		}
		lang, err := parseLang(in.Lang)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("invalid search arguments", err), nil
		}
		hits, err := nav.Search(in.Query, lang)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("search failed", err), nil
		}
		if hits == nil {
			hits = []navigator.Hit{}
		}
		return mcp.NewToolResultStructuredOnly(SearchResult{Hits: hits}), nil
	}
}

func editTool() mcp.Tool {
	return mcp.NewTool("catalog_edit",
		mcp.WithDescription("Change the description or expandable flag of one entry; flag changes are copied to the other languages"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Comma separated level IDs of the file")),
		langArg(),
		mcp.WithNumber("index", mcp.Required(), mcp.Min(0), mcp.Description("Entry index in the file")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithBoolean("expandable", mcp.Description("New expandable flag")),
	)
}

func editHandler(nav *navigator.Navigator) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in EditInput
		if err := req.BindArguments(&in); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid edit arguments", err), nil
		}
		if in.Path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		p, lang, err := target(in.Path, in.Lang)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("invalid edit arguments", err), nil
		}
		if in.Description == nil && in.Expandable == nil {
			return mcp.NewToolResultError("nothing to change: give description or expandable"), nil
		}
		res, err := nav.Apply(navigator.Edit{
			Path: p, Lang: lang, Index: in.Index,
			Description: in.Description, Expandable: in.Expandable,
		})
		if err != nil {
			return mcp.NewToolResultErrorFromErr("edit failed", err), nil
		}
		return mcp.NewToolResultStructuredOnly(*res), nil
	}
}

func checkTool() mcp.Tool {
	return mcp.NewTool("catalog_check",
		mcp.WithDescription("Run the coherence check over the whole catalog"),
		mcp.WithBoolean("quick", mcp.Description("Stop at the first file set with errors")),
	)
}

func checkHandler(c *coherence.Checker) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in CheckInput
		if err := req.BindArguments(&in); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid check arguments", err), nil
		}
		rep, err := c.Check(coherence.Options{Quick: in.Quick})
		if err != nil {
			return mcp.NewToolResultErrorFromErr("check failed", err), nil
		}
		return mcp.NewToolResultStructuredOnly(CheckResult{OK: rep.OK(), Summary: rep.Summary(), Report: rep}), nil
	}
}

func target(path, lang string) (codepath.Path, api.Language, error) {
	l, err := parseLang(lang)
	if err != nil {
		return codepath.Path{}, "", err
	}
	if path == "" {
		return codepath.Root, l, nil
	}
	p, err := codepath.ParseList(path)
	return p, l, err
}

func parseLang(s string) (api.Language, error) {
	if s == "" {
		return api.French, nil
	}
	return api.ParseLanguage(s)
}
