package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kovanov/redline/internal/match"
)

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestMCPCheckText(t *testing.T) {
	sess := &fakeSession{
		language: "en-US",
		matches:  []match.Match{{RuleID: "X", Message: "bad", Offset: 2, ErrorLength: 3}},
	}
	handler := mcpCheckText(MCPDeps{Session: sess})

	res, err := handler(context.Background(), makeCallToolRequest("check_text",
		map[string]any{"text": "a text"}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("IsError: %s", resultText(t, res))
	}

	var resp checkResponse
	if err := json.Unmarshal([]byte(resultText(t, res)), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Matches[0].RuleID != "X" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMCPCheckTextRequiresText(t *testing.T) {
	handler := mcpCheckText(MCPDeps{Session: &fakeSession{}})
	res, err := handler(context.Background(), makeCallToolRequest("check_text", map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected IsError for missing text")
	}
}

func TestMCPCheckTextSwitchesLanguage(t *testing.T) {
	sess := &fakeSession{language: "en-US"}
	handler := mcpCheckText(MCPDeps{Session: sess})

	_, err := handler(context.Background(), makeCallToolRequest("check_text",
		map[string]any{"text": "ein Text", "language": "de-DE"}))
	if err != nil {
		t.Fatal(err)
	}
	if sess.language != "de-DE" {
		t.Errorf("language = %q, want de-DE", sess.language)
	}
}

func TestMCPCorrectText(t *testing.T) {
	handler := mcpCorrectText(MCPDeps{Session: &fakeSession{corrected: "fixed text"}})
	res, err := handler(context.Background(), makeCallToolRequest("correct_text",
		map[string]any{"text": "broken text"}))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "fixed text" {
		t.Errorf("result = %q", got)
	}
}

func TestMCPListLanguages(t *testing.T) {
	sess := &fakeSession{langs: nil}
	handler := mcpListLanguages(MCPDeps{Session: sess})
	res, err := handler(context.Background(), makeCallToolRequest("list_languages", nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("IsError: %s", resultText(t, res))
	}
}
