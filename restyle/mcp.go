package restyle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/redim/palette"
	"github.com/hazyhaar/redim/prefs"
)

// RegisterMCP registers redim control tools on an MCP server.
func RegisterMCP(srv *mcp.Server, ryl *Restyler, store *prefs.Store, pal *palette.Map, version string) {
	registerStatusTool(srv, ryl, store, version)
	registerSetEnabledTool(srv, store)
	registerPaletteTool(srv, pal)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// registerTool wires an endpoint as an MCP tool: decode arguments, run,
// marshal the response as JSON text. Endpoint errors become tool errors,
// not protocol errors.
func registerTool(srv *mcp.Server, tool *mcp.Tool,
	endpoint func(ctx context.Context, req any) (any, error),
	decode func(*mcp.CallToolRequest) (any, error)) {

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		resp, err := endpoint(ctx, decoded)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- status ---

func registerStatusTool(srv *mcp.Server, ryl *Restyler, store *prefs.Store, version string) {
	tool := &mcp.Tool{
		Name:        "redim_status",
		Description: "Report the current restyle state: stored preference, live page state, version.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return statusResponse{
			Enabled: store.Enabled(ctx),
			Active:  ryl.Active(),
			Version: version,
		}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (any, error) { return nil, nil }

	registerTool(srv, tool, endpoint, decode)
}

// --- set_enabled ---

type setEnabledReq struct {
	Enabled bool `json:"enabled"`
}

func registerSetEnabledTool(srv *mcp.Server, store *prefs.Store) {
	tool := &mcp.Tool{
		Name:        "redim_set_enabled",
		Description: "Enable or disable restyling. The page converges through the preference watcher.",
		InputSchema: inputSchema(map[string]any{
			"enabled": map[string]any{"type": "boolean", "description": "Desired restyle state"},
		}, []string{"enabled"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*setEnabledReq)
		if err := store.SetEnabled(ctx, r.Enabled); err != nil {
			return nil, err
		}
		return map[string]bool{"enabled": r.Enabled}, nil
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var r setEnabledReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	registerTool(srv, tool, endpoint, decode)
}

// --- palette ---

func registerPaletteTool(srv *mcp.Server, pal *palette.Map) {
	tool := &mcp.Tool{
		Name:        "redim_palette",
		Description: "List the color mappings applied to the page.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"entries": paletteEntries(pal)}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (any, error) { return nil, nil }

	registerTool(srv, tool, endpoint, decode)
}
