package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/kcalplanner/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

const recentRecordsLimit = 20

func (h *handlers) presets(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	days, err := h.ds.Presets(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, days)
}

func (h *handlers) recentRecords(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	recs, err := h.ds.AllRecords(ctx)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.WorkoutRecord{}
	}
	if len(recs) > recentRecordsLimit {
		recs = recs[:recentRecordsLimit]
	}
	return jsonResource(req.Params.URI, recs)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
