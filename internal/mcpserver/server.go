// Package mcpserver provides an MCP (Model Context Protocol) server
// that lets an LLM edit the webpage through the same pipeline as the HTTP API.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pagebot/internal/history"
	"github.com/starford/pagebot/internal/pageservice"
)

// StateURI is the resource holding the current document.
const StateURI = "pagebot://state"

// Server wraps the MCP server with pagebot tools.
type Server struct {
	mcp *server.MCPServer
	svc *pageservice.Service
}

// New creates a new MCP server with all pagebot tools registered.
func New(svc *pageservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"pagebot",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("apply_instruction",
		mcp.WithDescription("Apply a natural-language edit to the webpage, e.g. "+
			`"Add a link to google.com in red color" or "Update text to \"Welcome\"". `+
			"Returns the confirmation message."),
		mcp.WithString("instruction", mcp.Required(), mcp.Description("The edit instruction")),
	), s.applyInstruction)

	s.mcp.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Return the current webpage document as JSON."),
	), s.getState)

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List recently processed instructions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 50)")),
	), s.getHistory)

	s.mcp.AddResource(
		mcp.NewResource(StateURI, "Webpage State",
			mcp.WithResourceDescription("Buttons, text, logo and banner of the managed webpage."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStateResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) applyInstruction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instruction, err := req.RequireString("instruction")
	if err != nil || strings.TrimSpace(instruction) == "" {
		return mcp.NewToolResultError("instruction is required"), nil
	}
	out, err := s.svc.Process(ctx, instruction, history.SourceMCP)
	if err != nil {
		return mcp.NewToolResultError(out.Message), nil
	}
	if !out.Success() {
		return mcp.NewToolResultError(out.Message), nil
	}
	return mcp.NewToolResultText(out.Message), nil
}

func (s *Server) getState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.stateJSON()
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", history.DefaultLimit)
	entries, err := s.svc.History(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no instructions recorded"), nil
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s [%s] %s: %q -> %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Source, e.Action, e.Instruction, e.Message)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) readStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.stateJSON()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StateURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) stateJSON() ([]byte, error) {
	return json.MarshalIndent(s.svc.State(), "", "  ")
}
