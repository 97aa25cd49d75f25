package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/UmarMaaz/pot-hole-detector/internal/embedding"
	"github.com/UmarMaaz/pot-hole-detector/internal/pipeline"
	"github.com/UmarMaaz/pot-hole-detector/internal/samples"
	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *samples.Store
	Trainer   *pipeline.Trainer
	Processor *pipeline.Processor
}

// NewMCPServer creates an MCP server exposing the hazard pipeline as agent
// tools: detect on a still image, train a hazard from a region, forget a
// sample, and list the memory bank.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"pothole-detector",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("pothole-detector — road hazard detection with a user-trainable memory bank."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("detect_hazards",
			mcp.WithDescription("Run hazard detection on an image file and return the classified detections."),
			mcp.WithString("path", mcp.Description("Path to a JPEG or PNG image"), mcp.Required()),
		),
		mcpDetect(deps),
	)

	s.AddTool(
		mcp.NewTool("train_hazard",
			mcp.WithDescription("Learn a new hazard from a region of an image file. The region is normalized 0..1 coordinates."),
			mcp.WithString("path", mcp.Description("Path to a JPEG or PNG image"), mcp.Required()),
			mcp.WithNumber("y_min", mcp.Description("Top edge, 0..1"), mcp.Required()),
			mcp.WithNumber("x_min", mcp.Description("Left edge, 0..1"), mcp.Required()),
			mcp.WithNumber("y_max", mcp.Description("Bottom edge, 0..1"), mcp.Required()),
			mcp.WithNumber("x_max", mcp.Description("Right edge, 0..1"), mcp.Required()),
		),
		mcpTrain(deps),
	)

	s.AddTool(
		mcp.NewTool("forget_hazard",
			mcp.WithDescription("Delete a learned hazard sample by id. Unknown ids are a no-op."),
			mcp.WithString("id", mcp.Description("Sample id"), mcp.Required()),
		),
		mcpForget(deps),
	)

	s.AddTool(
		mcp.NewTool("list_hazards",
			mcp.WithDescription("List the learned hazard samples (memory bank), most recent first."),
		),
		mcpList(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"hazards://memory-bank",
			"Learned Hazard Memory Bank",
			mcp.WithResourceDescription("All learned samples as JSON summaries"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceBank(deps),
	)

	return s
}

func loadFrame(path string) (vision.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vision.Frame{}, fmt.Errorf("reading image: %w", err)
	}
	return vision.DecodeFrame(data)
}

func mcpDetect(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}

		frame, err := loadFrame(path)
		if err != nil {
			return mcpError(fmt.Sprintf("loading image: %v", err)), nil
		}

		detections := deps.Processor.Process(ctx, frame)

		type result struct {
			Category   string  `json:"category"`
			Score      float64 `json:"score"`
			Type       string  `json:"type"`
			Label      string  `json:"label"`
			Distance   float64 `json:"distance"`
			MatchScore float64 `json:"match_score,omitempty"`
		}
		results := make([]result, len(detections))
		for i, d := range detections {
			results[i] = result{
				Category:   d.RawCategory,
				Score:      d.Score,
				Type:       d.Type.String(),
				Label:      d.Label,
				Distance:   d.Distance,
				MatchScore: d.MatchScore,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTrain(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}

		rect := vision.Rect{
			YMin: req.GetFloat("y_min", 0),
			XMin: req.GetFloat("x_min", 0),
			YMax: req.GetFloat("y_max", 0),
			XMax: req.GetFloat("x_max", 0),
		}

		frame, err := loadFrame(path)
		if err != nil {
			return mcpError(fmt.Sprintf("loading image: %v", err)), nil
		}

		sample, err := deps.Trainer.Train(ctx, frame, rect)
		if errors.Is(err, embedding.ErrEmbeddingUnavailable) {
			return mcpError("region too small or embedding unavailable"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("training failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Learned hazard sample %s (dim %d)", sample.ID, len(sample.Embedding))), nil
	}
}

func mcpForget(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		if err := deps.Store.Delete(ctx, id); err != nil {
			return mcpError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Forgot sample %s", id)), nil
	}
}

func mcpList(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(bankSummaries(deps.Store))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal samples: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceBank(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(bankSummaries(deps.Store))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal samples: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

type bankSummary struct {
	ID        string `json:"id"`
	Dim       int    `json:"dim"`
	CreatedAt string `json:"created_at"`
}

func bankSummaries(store *samples.Store) []bankSummary {
	bank := store.Snapshot()
	out := make([]bankSummary, len(bank))
	for i, s := range bank {
		out[i] = bankSummary{
			ID:        s.ID,
			Dim:       len(s.Embedding),
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
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
