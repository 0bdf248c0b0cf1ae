package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPChecker is the slice of a session the MCP layer needs. A language
// switch applies to the whole session, which is fine for a single-user
// stdio server.
type MCPChecker interface {
	Checker
	SetLanguage(ctx context.Context, tag string) error
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Session MCPChecker
	Version string
}

// NewMCPServer creates an MCP server exposing the grammar tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"redline",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("redline — grammar and spell checking backed by a local LanguageTool engine."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("check_text",
			mcp.WithDescription("Check text for grammar, style and spelling problems and return the flagged spans."),
			mcp.WithString("text", mcp.Description("The text to check"), mcp.Required()),
			mcp.WithString("language", mcp.Description("Language tag such as en-US; defaults to the server's configured language")),
		),
		mcpCheckText(deps),
	)

	s.AddTool(
		mcp.NewTool("correct_text",
			mcp.WithDescription("Check text and apply the first suggested fix for every problem found."),
			mcp.WithString("text", mcp.Description("The text to correct"), mcp.Required()),
		),
		mcpCorrectText(deps),
	)

	s.AddTool(
		mcp.NewTool("list_languages",
			mcp.WithDescription("List the languages the checking engine supports."),
		),
		mcpListLanguages(deps),
	)

	return s
}

func mcpCheckText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		if lang := req.GetString("language", ""); lang != "" && lang != deps.Session.Language() {
			if err := deps.Session.SetLanguage(ctx, lang); err != nil {
				return mcpError(fmt.Sprintf("cannot switch language: %v", err)), nil
			}
		}

		matches, err := deps.Session.Check(ctx, text)
		if err != nil {
			return mcpError(fmt.Sprintf("check failed: %v", err)), nil
		}

		b, err := json.Marshal(checkResponse{
			Language: deps.Session.Language(),
			Count:    len(matches),
			Matches:  emptyIfNil(matches),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal matches: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCorrectText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		corrected, err := deps.Session.Correct(ctx, text)
		if err != nil {
			return mcpError(fmt.Sprintf("correction failed: %v", err)), nil
		}
		return mcpText(corrected), nil
	}
}

func mcpListLanguages(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		langs, err := deps.Session.Languages(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing languages failed: %v", err)), nil
		}
		b, err := json.Marshal(langs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal languages: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
