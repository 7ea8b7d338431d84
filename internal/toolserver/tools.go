package toolserver

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/sanitize"
)

// maxResultContentChars truncates a single result's content in the
// tool response; the stored chunk itself is untouched.
const maxResultContentChars = 500

// QueryProjectInput is the input schema for query_project.
type QueryProjectInput struct {
	Query      string `json:"query" jsonschema:"the search query, 1 to 10000 characters"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"number of results to return, clamped to [1,50], default 10"`
}

// QueryProjectResultOutput is a single result row in QueryProjectOutput.
type QueryProjectResultOutput struct {
	File        string            `json:"file"`
	Lines       string            `json:"lines"`
	ContentType model.ContentType `json:"content_type"`
	Heading     string            `json:"heading,omitempty"`
	Score       float64           `json:"score"`
	Content     string            `json:"content"`
}

// QueryProjectOutput is the output schema for query_project.
type QueryProjectOutput struct {
	Query        string                     `json:"query"`
	TotalResults int                        `json:"total_results"`
	QueryTimeMS  int64                      `json:"query_time_ms"`
	Results      []QueryProjectResultOutput `json:"results"`
}

func (s *Server) handleQueryProject(ctx context.Context, _ *mcp.CallToolRequest, input QueryProjectInput) (*mcp.CallToolResult, QueryProjectOutput, error) {
	if input.Query == "" {
		return nil, QueryProjectOutput{}, toolError("query is required")
	}
	if len(input.Query) > MaxQueryLen {
		return nil, QueryProjectOutput{}, toolError(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLen))
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	if maxResults > 50 {
		maxResults = 50
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return nil, QueryProjectOutput{}, toolError(sanitize.Error(err))
	}

	start := time.Now()
	res, err := s.manager.QueryProject(ctx, input.Query, projectPath, maxResults)
	if err != nil {
		return nil, QueryProjectOutput{}, toolError(sanitize.Error(err))
	}
	elapsed := time.Since(start)

	out := QueryProjectOutput{
		Query:        input.Query,
		TotalResults: res.TotalResults,
		QueryTimeMS:  elapsed.Milliseconds(),
		Results:      make([]QueryProjectResultOutput, 0, len(res.Results)),
	}
	for _, r := range res.Results {
		out.Results = append(out.Results, QueryProjectResultOutput{
			File:        r.SourcePath,
			Lines:       fmt.Sprintf("%d-%d", r.StartLine, r.EndLine),
			ContentType: r.ContentType,
			Heading:     r.Heading,
			Score:       round3(r.Score),
			Content:     truncateContent(r.Content),
		})
	}
	return nil, out, nil
}

// IndexProjectInput is the (empty) input schema for index_project.
type IndexProjectInput struct{}

// IndexProjectOutput is the output schema for index_project.
type IndexProjectOutput struct {
	ProjectID   string `json:"project_id"`
	TotalChunks int    `json:"total_chunks"`
	TotalFiles  int    `json:"total_files"`
}

func (s *Server) handleIndexProject(ctx context.Context, _ *mcp.CallToolRequest, _ IndexProjectInput) (*mcp.CallToolResult, IndexProjectOutput, error) {
	if !s.indexLimiter.Allow() {
		return nil, IndexProjectOutput{}, toolError(fmt.Sprintf(
			"rate limit exceeded: at most %d index_project calls per minute", RateLimitRefillPerMinute))
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return nil, IndexProjectOutput{}, toolError(sanitize.Error(err))
	}

	idx, err := s.manager.ReindexProject(ctx, projectPath)
	if err != nil {
		return nil, IndexProjectOutput{}, toolError(sanitize.Error(err))
	}

	return nil, IndexProjectOutput{
		ProjectID:   idx.ProjectID,
		TotalChunks: idx.TotalChunks,
		TotalFiles:  idx.TotalFiles,
	}, nil
}

// ListProjectsInput is the (empty) input schema for list_projects.
type ListProjectsInput struct{}

// ListProjectsOutput is the output schema for list_projects.
type ListProjectsOutput struct {
	Projects []string `json:"projects"`
}

func (s *Server) handleListProjects(_ context.Context, _ *mcp.CallToolRequest, _ ListProjectsInput) (*mcp.CallToolResult, ListProjectsOutput, error) {
	ids, err := s.manager.ListProjects()
	if err != nil {
		return nil, ListProjectsOutput{}, toolError(sanitize.Error(err))
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, ListProjectsOutput{Projects: ids}, nil
}

// ProjectStatusInput is the (empty) input schema for project_status.
type ProjectStatusInput struct{}

// ProjectStatusOutput mirrors model.ProjectStatus with a human-readable
// message for the not-indexed case, rather than treating it as an
// error the caller has to branch on.
type ProjectStatusOutput struct {
	ProjectID      string              `json:"project_id"`
	ProjectPath    string              `json:"project_path"`
	Loaded         bool                `json:"loaded"`
	Indexed        bool                `json:"indexed"`
	TotalChunks    int                 `json:"total_chunks"`
	TotalFiles     int                 `json:"total_files"`
	EmbeddingModel string              `json:"embedding_model"`
	IndexMode      model.IndexMode     `json:"index_mode"`
	WatcherStatus  model.WatcherStatus `json:"watcher_status"`
	UpdatedAt      time.Time           `json:"updated_at"`
	IndexSizeBytes int64               `json:"index_size_bytes"`
	Message        string              `json:"message,omitempty"`
}

func (s *Server) handleProjectStatus(_ context.Context, _ *mcp.CallToolRequest, _ ProjectStatusInput) (*mcp.CallToolResult, ProjectStatusOutput, error) {
	projectPath, err := os.Getwd()
	if err != nil {
		return nil, ProjectStatusOutput{}, toolError(sanitize.Error(err))
	}

	status, err := s.manager.GetProjectStatus(projectPath)
	if err != nil {
		return nil, ProjectStatusOutput{}, toolError(sanitize.Error(err))
	}

	out := ProjectStatusOutput{
		ProjectID:      status.ProjectID,
		ProjectPath:    status.ProjectPath,
		Loaded:         status.Loaded,
		Indexed:        status.Indexed,
		TotalChunks:    status.TotalChunks,
		TotalFiles:     status.TotalFiles,
		EmbeddingModel: status.EmbeddingModel,
		IndexMode:      status.IndexMode,
		WatcherStatus:  status.WatcherStatus,
		UpdatedAt:      status.UpdatedAt,
		IndexSizeBytes: status.IndexSizeBytes,
	}
	if !status.Indexed {
		out.Message = "project is not indexed; call index_project first"
	}
	return nil, out, nil
}

func toolError(msg string) error {
	return fmt.Errorf("%s", sanitize.Message(msg))
}

func truncateContent(s string) string {
	if len(s) <= maxResultContentChars {
		return s
	}
	return s[:maxResultContentChars]
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
