package mcpcodec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"edgemcp/internal/domain"
)

// ToolToMCP converts a registered tool to its MCP advertisement.
func ToolToMCP(tool *domain.RegisteredTool) *mcp.Tool {
	if tool == nil {
		return nil
	}
	return &mcp.Tool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
	}
}

// ResultToMCP converts a dispatch outcome to an MCP call result.
// Rendered blocks become text content; the structured payload rides
// alongside for clients that consume it directly.
func ResultToMCP(resp domain.ToolResponse) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(resp.Blocks))
	for _, block := range resp.Blocks {
		content = append(content, &mcp.TextContent{Text: block.Text})
	}
	return &mcp.CallToolResult{
		Content:           content,
		StructuredContent: resp.Structured,
		IsError:           resp.IsError,
	}
}

// MarshalTool encodes a tool advertisement as MCP JSON.
func MarshalTool(tool *domain.RegisteredTool) ([]byte, error) {
	wire := ToolToMCP(tool)
	return json.Marshal(wire)
}

// CatalogueHash returns a deterministic hash over the MCP wire form of
// a tool catalogue. Order is significant; callers pass registry order,
// which is sorted by name.
func CatalogueHash(tools []*domain.RegisteredTool) (string, error) {
	hasher := sha256.New()
	for i, tool := range tools {
		raw, err := MarshalTool(tool)
		if err != nil {
			return "", fmt.Errorf("marshal tool %d: %w", i, err)
		}
		_, _ = hasher.Write(raw)
		_, _ = hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
