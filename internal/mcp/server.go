package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/scribeindex/internal/builder"
	"github.com/Aman-CERP/scribeindex/internal/config"
	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
	"github.com/Aman-CERP/scribeindex/internal/history"
	"github.com/Aman-CERP/scribeindex/pkg/version"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "scribeindex"

// DefaultCleanupAgeDays is used when cleanup_indexes gets no age.
const DefaultCleanupAgeDays = 30

// HistoryReader looks up persisted builds.
type HistoryReader interface {
	LatestSuccess(ctx context.Context, tool string) (*history.Record, bool, error)
}

// Server exposes an Orchestrator over MCP.
type Server struct {
	mcp     *mcp.Server
	orch    *builder.Orchestrator
	history HistoryReader
	logger  *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolInfos = []ToolInfo{
	{Name: "build_index", Description: "Build the search index for one tool from content/<tool>. Returns build statistics, errors, and warnings."},
	{Name: "build_all", Description: "Build the search index of every configured tool. A failing tool does not stop the others."},
	{Name: "rebuild_index", Description: "Back up the existing index of a tool and build it again from scratch."},
	{Name: "validate_index", Description: "Check the persisted index of a tool for structural corruption without modifying it."},
	{Name: "index_stats", Description: "Report the last successful build statistics and current document counts of a tool."},
	{Name: "active_builds", Description: "List builds currently running in this server with their phase and progress."},
	{Name: "cancel_build", Description: "Cancel a running build by id."},
	{Name: "cleanup_indexes", Description: "Remove index and backup files older than max_age_days."},
}

// NewServer creates an MCP server. hist may be nil.
func NewServer(orch *builder.Orchestrator, hist HistoryReader) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}

	s := &Server{
		orch:    orch,
		history: hist,
		logger:  slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), toolInfos...)
}

func (s *Server) registerTools() {
	desc := func(name string) string {
		for _, t := range toolInfos {
			if t.Name == name {
				return t.Description
			}
		}
		return ""
	}

	mcp.AddTool(s.mcp, &mcp.Tool{Name: "build_index", Description: desc("build_index")}, s.mcpBuildIndexHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "build_all", Description: desc("build_all")}, s.mcpBuildAllHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "rebuild_index", Description: desc("rebuild_index")}, s.mcpRebuildIndexHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "validate_index", Description: desc("validate_index")}, s.mcpValidateIndexHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "index_stats", Description: desc("index_stats")}, s.mcpIndexStatsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "active_builds", Description: desc("active_builds")}, s.mcpActiveBuildsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "cancel_build", Description: desc("cancel_build")}, s.mcpCancelBuildHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "cleanup_indexes", Description: desc("cleanup_indexes")}, s.mcpCleanupHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(toolInfos)))
}

// CallTool invokes a tool by name with JSON-style arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "build_index":
		return callWith(ctx, args, s.handleBuildIndex)
	case "build_all":
		return callWith(ctx, args, func(ctx context.Context, _ BuildAllInput) (BuildAllOutput, error) {
			return s.handleBuildAll(ctx)
		})
	case "rebuild_index":
		return callWith(ctx, args, s.handleRebuildIndex)
	case "validate_index":
		return callWith(ctx, args, s.handleValidateIndex)
	case "index_stats":
		return callWith(ctx, args, s.handleIndexStats)
	case "active_builds":
		return s.handleActiveBuilds(), nil
	case "cancel_build":
		return callWith(ctx, args, s.handleCancelBuild)
	case "cleanup_indexes":
		return callWith(ctx, args, s.handleCleanup)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// callWith decodes args into In and runs fn.
func callWith[In, Out any](ctx context.Context, args map[string]any, fn func(context.Context, In) (Out, error)) (any, error) {
	var in In
	if len(args) > 0 {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
		}
	}
	out, err := fn(ctx, in)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) handleBuildIndex(ctx context.Context, in ToolInput) (BuildOutput, error) {
	if in.Tool == "" {
		return BuildOutput{}, NewInvalidParamsError("tool parameter is required")
	}
	return s.runBuild(ctx, "build_index", in.Tool, s.orch.BuildTool)
}

func (s *Server) handleRebuildIndex(ctx context.Context, in ToolInput) (BuildOutput, error) {
	if in.Tool == "" {
		return BuildOutput{}, NewInvalidParamsError("tool parameter is required")
	}
	return s.runBuild(ctx, "rebuild_index", in.Tool, s.orch.Rebuild)
}

// runBuild returns the result of a failed build as output rather than as
// an error, unless nothing was attempted.
func (s *Server) runBuild(ctx context.Context, name, tool string, fn func(context.Context, string) (*builder.BuildResult, error)) (BuildOutput, error) {
	requestID := generateRequestID()
	s.logger.Info(name+" started",
		slog.String("request_id", requestID),
		slog.String("tool", tool))

	res, err := fn(ctx, tool)
	if err != nil {
		s.logger.Warn(name+" failed",
			slog.String("request_id", requestID),
			slog.String("tool", tool),
			slog.String("error", err.Error()))
		if ierrors.IsKind(err, ierrors.KindInvalidConfiguration) || ierrors.GetCode(err) == ierrors.ErrCodeInvalidInput {
			return BuildOutput{}, MapError(err)
		}
	} else {
		s.logger.Info(name+" completed",
			slog.String("request_id", requestID),
			slog.String("tool", tool),
			slog.Duration("duration", res.Duration))
	}
	return ToBuildOutput(res), nil
}

func (s *Server) handleBuildAll(ctx context.Context) (BuildAllOutput, error) {
	results := s.orch.BuildAll(ctx)
	out := BuildAllOutput{Results: make([]BuildOutput, 0, len(results))}
	for _, r := range results {
		bo := ToBuildOutput(r)
		if bo.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, bo)
	}
	return out, nil
}

func (s *Server) handleValidateIndex(ctx context.Context, in ToolInput) (ValidateOutput, error) {
	if in.Tool == "" {
		return ValidateOutput{}, NewInvalidParamsError("tool parameter is required")
	}
	report, err := s.orch.Validate(ctx, in.Tool)
	if err != nil {
		if ierrors.IsKind(err, ierrors.KindIndexCorruption) {
			return ValidateOutput{Tool: in.Tool, Valid: false, Problem: err.Error()}, nil
		}
		return ValidateOutput{}, MapError(err)
	}
	return ValidateOutput{
		Tool:        in.Tool,
		Valid:       true,
		Documents:   report.Documents,
		Terms:       report.Terms,
		Postings:    report.Postings,
		LastUpdated: formatTimestamp(report.LastUpdated),
	}, nil
}

// handleIndexStats prefers statistics from this process and falls back
// to the history ledger.
func (s *Server) handleIndexStats(ctx context.Context, in ToolInput) (StatsOutput, error) {
	if in.Tool == "" {
		return StatsOutput{}, NewInvalidParamsError("tool parameter is required")
	}
	if err := config.ValidateToolName(in.Tool); err != nil {
		return StatsOutput{}, MapError(err)
	}
	out := StatsOutput{Tool: in.Tool, Source: "none"}

	if stats, ok := s.orch.Statistics(in.Tool); ok {
		so := toStatisticsOutput(stats)
		out.Statistics = &so
		out.Source = "memory"
	} else if s.history != nil {
		rec, found, err := s.history.LatestSuccess(ctx, in.Tool)
		if err != nil {
			return StatsOutput{}, MapError(err)
		}
		if found {
			so := statisticsFromRecord(rec)
			out.Statistics = &so
			out.Source = "history"
			out.LastBuildAt = formatTimestamp(rec.CreatedAt)
		}
	}

	st := s.orch.Store()
	if st.Exists(in.Tool) {
		idx, err := st.Load(in.Tool)
		if err != nil {
			return StatsOutput{}, MapError(err)
		}
		out.IndexExists = true
		out.Documents = idx.DocumentCount()
		out.Terms = idx.TermCount()
		if out.LastBuildAt == "" {
			out.LastBuildAt = formatTimestamp(idx.LastUpdated)
		}
	}
	return out, nil
}

func (s *Server) handleActiveBuilds() ActiveBuildsOutput {
	active := s.orch.ActiveBuilds()
	out := ActiveBuildsOutput{Builds: make([]ProgressOutput, 0, len(active))}
	for _, p := range active {
		out.Builds = append(out.Builds, toProgressOutput(p))
	}
	return out
}

func (s *Server) handleCancelBuild(_ context.Context, in CancelBuildInput) (CancelBuildOutput, error) {
	if in.BuildID == "" {
		return CancelBuildOutput{}, NewInvalidParamsError("build_id parameter is required")
	}
	if err := s.orch.Cancel(in.BuildID); err != nil {
		return CancelBuildOutput{}, MapError(err)
	}
	return CancelBuildOutput{BuildID: in.BuildID, Cancelled: true}, nil
}

func (s *Server) handleCleanup(_ context.Context, in CleanupInput) (CleanupOutput, error) {
	days := in.MaxAgeDays
	if days < 0 {
		return CleanupOutput{}, NewInvalidParamsError("max_age_days must be non-negative")
	}
	if days == 0 {
		days = DefaultCleanupAgeDays
	}
	removed, err := s.orch.CleanupOldIndexes(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return CleanupOutput{}, MapError(err)
	}
	return CleanupOutput{Removed: append([]string{}, removed...)}, nil
}

func (s *Server) mcpBuildIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, input ToolInput) (
	*mcp.CallToolResult,
	BuildOutput,
	error,
) {
	out, err := s.handleBuildIndex(ctx, input)
	if err != nil {
		return nil, BuildOutput{}, err
	}
	return textResult(FormatBuildOutput(out)), out, nil
}

func (s *Server) mcpBuildAllHandler(ctx context.Context, _ *mcp.CallToolRequest, _ BuildAllInput) (
	*mcp.CallToolResult,
	BuildAllOutput,
	error,
) {
	out, err := s.handleBuildAll(ctx)
	if err != nil {
		return nil, BuildAllOutput{}, MapError(err)
	}
	return textResult(FormatBuildAllOutput(out)), out, nil
}

func (s *Server) mcpRebuildIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, input ToolInput) (
	*mcp.CallToolResult,
	BuildOutput,
	error,
) {
	out, err := s.handleRebuildIndex(ctx, input)
	if err != nil {
		return nil, BuildOutput{}, err
	}
	return textResult(FormatBuildOutput(out)), out, nil
}

func (s *Server) mcpValidateIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, input ToolInput) (
	*mcp.CallToolResult,
	ValidateOutput,
	error,
) {
	out, err := s.handleValidateIndex(ctx, input)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpIndexStatsHandler(ctx context.Context, _ *mcp.CallToolRequest, input ToolInput) (
	*mcp.CallToolResult,
	StatsOutput,
	error,
) {
	out, err := s.handleIndexStats(ctx, input)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpActiveBuildsHandler(_ context.Context, _ *mcp.CallToolRequest, _ ActiveBuildsInput) (
	*mcp.CallToolResult,
	ActiveBuildsOutput,
	error,
) {
	return nil, s.handleActiveBuilds(), nil
}

func (s *Server) mcpCancelBuildHandler(ctx context.Context, _ *mcp.CallToolRequest, input CancelBuildInput) (
	*mcp.CallToolResult,
	CancelBuildOutput,
	error,
) {
	out, err := s.handleCancelBuild(ctx, input)
	if err != nil {
		return nil, CancelBuildOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpCleanupHandler(ctx context.Context, _ *mcp.CallToolRequest, input CleanupInput) (
	*mcp.CallToolResult,
	CleanupOutput,
	error,
) {
	out, err := s.handleCleanup(ctx, input)
	if err != nil {
		return nil, CleanupOutput{}, err
	}
	return nil, out, nil
}

// Serve runs the server on transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// generateRequestID creates a short id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
