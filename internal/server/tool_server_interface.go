// Package server provides the MCP server implementation for mcp-pocket.
package server

// ToolServer defines the lifecycle of the MCP server that answers
// tool calls from MCP clients.
type ToolServer interface {
	// Initialize registers the tools with the MCP transport.
	Initialize() error

	// Start serves MCP requests until the transport closes.
	Start() error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}
