package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/pagebot/internal/interpreter"
	"github.com/starford/pagebot/internal/pageservice"
	"github.com/starford/pagebot/internal/state"
	"github.com/starford/pagebot/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.MemoryStore(t)
	db := testutil.TestDB(t)
	svc := pageservice.New(interpreter.NewPattern(false), store,
		pageservice.WithRecorder(db),
		pageservice.WithLogger(testutil.Logger()),
	)
	return New(svc, "test")
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
	case "apply_instruction":
		result, err = srv.applyInstruction(ctx, req)
	case "get_state":
		result, err = srv.getState(ctx, req)
	case "get_history":
		result, err = srv.getHistory(ctx, req)
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

func TestApplyInstruction(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "apply_instruction", map[string]interface{}{
		"instruction": "Add a link to www.example.com in green",
	})
	if r.IsError {
		t.Fatalf("unexpected error result: %s", resultText(r))
	}
	if got := resultText(r); got != "Added a green button linking to https://www.example.com" {
		t.Errorf("result = %q", got)
	}

	r = callTool(t, srv, "get_state", map[string]interface{}{})
	var doc state.Document
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("state is not JSON: %v", err)
	}
	if len(doc.Buttons) != 2 || doc.Buttons[1].URL != "https://www.example.com" {
		t.Errorf("buttons = %+v", doc.Buttons)
	}
}

func TestApplyInstructionUnrecognized(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "apply_instruction", map[string]interface{}{"instruction": "dance"})
	if !r.IsError {
		t.Error("expected error result for unrecognized instruction")
	}
	if !strings.Contains(resultText(r), "I couldn't understand that instruction") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestApplyInstructionMissingArgument(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "apply_instruction", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error result for missing instruction")
	}
}

func TestGetHistoryRecordsMCPSource(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_history", map[string]interface{}{})
	if got := resultText(r); got != "no instructions recorded" {
		t.Errorf("empty history = %q", got)
	}

	_ = callTool(t, srv, "apply_instruction", map[string]interface{}{"instruction": `Update text to "Hi"`})

	r = callTool(t, srv, "get_history", map[string]interface{}{"limit": float64(5)})
	text := resultText(r)
	if !strings.Contains(text, "[mcp] updateText") || !strings.Contains(text, "Text content updated") {
		t.Errorf("history = %q", text)
	}
}

func TestReadStateResource(t *testing.T) {
	srv := testServer(t)

	contents, err := srv.readStateResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	if tc.URI != StateURI || tc.MIMEType != "application/json" {
		t.Errorf("resource = %+v", tc)
	}
	if !strings.Contains(tc.Text, `"logoUrl"`) {
		t.Errorf("text = %q", tc.Text)
	}
}
