package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext returns the user the session was started for, or "" when
// tools must name one explicitly.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a context with the given default user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("kcalplanner", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("kcalplanner workout and calorie planner. Register or look up users, record workout sessions from presets or custom exercises, "+
			"and read history, suggested loads and progression advice. Calorie figures are rough estimates."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolRegisterUser, Handler: h.registerUser},
		server.ServerTool{Tool: toolFindUser, Handler: h.findUser},
		server.ServerTool{Tool: toolListUsers, Handler: h.listUsers},
		server.ServerTool{Tool: toolUpdateProfile, Handler: h.updateProfile},
		server.ServerTool{Tool: toolRecordWorkout, Handler: h.recordWorkout},
		server.ServerTool{Tool: toolGetHistory, Handler: h.getHistory},
		server.ServerTool{Tool: toolGetRecommendations, Handler: h.getRecommendations},
		server.ServerTool{Tool: toolSuggestLoad, Handler: h.suggestLoad},
		server.ServerTool{Tool: toolListPresets, Handler: h.listPresets},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resPresets, Handler: h.presets},
		server.ServerResource{Resource: resRecentRecords, Handler: h.recentRecords},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resPresets = mcp.NewResource(
	"kcalplanner://presets",
	"Workout Presets",
	mcp.WithResourceDescription("The built-in workout days with their exercises, groups and MET values"),
	mcp.WithMIMEType("application/json"),
)

var resRecentRecords = mcp.NewResource(
	"kcalplanner://recent_records",
	"Recent Workouts",
	mcp.WithResourceDescription("The most recent workout records across all users, latest first"),
	mcp.WithMIMEType("application/json"),
)
