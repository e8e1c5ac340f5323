package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkrab/famulus/internal/orchestrator"
	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/tools"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Orch   *orchestrator.Orchestrator
	Policy *policy.Policy
}

// NewMCPServer builds an MCP server exposing the assistant as a chat
// tool plus one tool per registry entry the policy allows. Everything
// runs through the orchestrator so the audit trail stays intact.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"famulus",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("famulus — household assistant: todos, calendar, kitchen tips, app guide, weather and news."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send a natural-language message through the full assistant pipeline and get the formatted answer."),
			mcp.WithString("message", mcp.Description("The user message"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	for _, name := range deps.Policy.AllowedTools() {
		tool := mcp.NewTool("run_"+name,
			mcp.WithDescription(fmt.Sprintf("Invoke the %s tool directly with a structured payload.", name)),
			mcp.WithString("payload", mcp.Description("JSON object with action and entity fields"), mcp.Required()),
			mcp.WithBoolean("dry_run", mcp.Description("Validate without writing (default false)")),
		)
		s.AddTool(tool, mcpRunTool(deps, name))
	}

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		resp := deps.Orch.HandleMessage(ctx, message)
		return mcpText(resp.Text), nil
	}
}

func mcpRunTool(deps MCPDeps, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("payload")
		if err != nil {
			return mcpError("payload is required"), nil
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return mcpError(fmt.Sprintf("payload must be a JSON object: %v", err)), nil
		}
		dryRun := req.GetBool("dry_run", false)

		result, err := deps.Orch.RunTool(ctx, name, tools.Payload(payload), dryRun)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		body, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		if result.IsError() {
			return mcpError(string(body)), nil
		}
		return mcpText(string(body)), nil
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
