package toolserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxengine/ctxengine/internal/encode"
	"github.com/ctxengine/ctxengine/internal/indexer"
	"github.com/ctxengine/ctxengine/internal/manager"
	"github.com/ctxengine/ctxengine/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	backend, err := storage.NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	enc := encode.NewHashEncoder(32)
	ix := indexer.New(backend, enc)
	mgr := manager.New(backend, ix, enc, manager.DefaultSemanticWeight)
	t.Cleanup(mgr.Shutdown)
	return New(mgr)
}

// chdir switches the process cwd to dir for the duration of the test,
// restoring the previous cwd on cleanup. The tool handlers resolve the
// current project from os.Getwd, mirroring how an MCP client's process
// cwd determines the active project.
func chdir(t *testing.T, dir string) {
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func writeProject(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestHandleQueryProjectRejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	chdir(t, writeProject(t, map[string]string{"a.txt": "content"}))

	_, _, err := s.handleQueryProject(context.Background(), nil, QueryProjectInput{Query: ""})
	assert.Error(t, err)
}

func TestHandleQueryProjectRejectsOverlongQuery(t *testing.T) {
	s := newTestServer(t)
	chdir(t, writeProject(t, map[string]string{"a.txt": "content"}))

	_, _, err := s.handleQueryProject(context.Background(), nil, QueryProjectInput{Query: strings.Repeat("x", MaxQueryLen+1)})
	assert.Error(t, err)
}

func TestHandleQueryProjectIndexesOnFirstCallAndReturnsMatch(t *testing.T) {
	s := newTestServer(t)
	dir := writeProject(t, map[string]string{
		"needle.txt": "kangaroo kangaroo kangaroo jumping through the outback",
		"hay.txt":    "completely unrelated filler about quarterly budgets",
	})
	chdir(t, dir)

	_, out, err := s.handleQueryProject(context.Background(), nil, QueryProjectInput{Query: "kangaroo outback"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "needle.txt", out.Results[0].File)
	assert.Contains(t, out.Results[0].Lines, "-")
}

func TestHandleQueryProjectClampsMaxResults(t *testing.T) {
	s := newTestServer(t)
	chdir(t, writeProject(t, map[string]string{"a.txt": "alpha beta gamma"}))

	_, out, err := s.handleQueryProject(context.Background(), nil, QueryProjectInput{Query: "alpha", MaxResults: 9000})
	require.NoError(t, err)
	assert.LessOrEqual(t, out.TotalResults, 50)
}

func TestHandleIndexProjectBuildsIndex(t *testing.T) {
	s := newTestServer(t)
	chdir(t, writeProject(t, map[string]string{"a.go": "package a\n\nfunc F() {}\n"}))

	_, out, err := s.handleIndexProject(context.Background(), nil, IndexProjectInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.TotalFiles)
	assert.NotEmpty(t, out.ProjectID)
}

func TestHandleIndexProjectIsRateLimited(t *testing.T) {
	s := newTestServer(t)
	chdir(t, writeProject(t, map[string]string{"a.go": "package a\n"}))

	var lastErr error
	for i := 0; i < RateLimitCapacity+1; i++ {
		_, _, lastErr = s.handleIndexProject(context.Background(), nil, IndexProjectInput{})
	}
	assert.Error(t, lastErr, "exceeding the bucket capacity in quick succession should be rejected")
}

func TestHandleListProjectsReturnsIndexedProjects(t *testing.T) {
	s := newTestServer(t)
	chdir(t, writeProject(t, map[string]string{"a.go": "package a\n"}))

	_, _, err := s.handleIndexProject(context.Background(), nil, IndexProjectInput{})
	require.NoError(t, err)

	_, out, err := s.handleListProjects(context.Background(), nil, ListProjectsInput{})
	require.NoError(t, err)
	assert.Len(t, out.Projects, 1)
}

func TestHandleProjectStatusReportsNotIndexed(t *testing.T) {
	s := newTestServer(t)
	chdir(t, t.TempDir())

	_, out, err := s.handleProjectStatus(context.Background(), nil, ProjectStatusInput{})
	require.NoError(t, err)
	assert.False(t, out.Indexed)
	assert.NotEmpty(t, out.Message)
}

func TestHandleProjectStatusReportsIndexedWithNoMessage(t *testing.T) {
	s := newTestServer(t)
	chdir(t, writeProject(t, map[string]string{"a.go": "package a\n"}))

	_, _, err := s.handleIndexProject(context.Background(), nil, IndexProjectInput{})
	require.NoError(t, err)

	_, out, err := s.handleProjectStatus(context.Background(), nil, ProjectStatusInput{})
	require.NoError(t, err)
	assert.True(t, out.Indexed)
	assert.Empty(t, out.Message)
}

func TestTruncateContentLeavesShortContentAlone(t *testing.T) {
	assert.Equal(t, "short", truncateContent("short"))
}

func TestTruncateContentCapsLongContent(t *testing.T) {
	long := strings.Repeat("a", maxResultContentChars+50)
	got := truncateContent(long)
	assert.Len(t, got, maxResultContentChars)
}

func TestRound3RoundsToThreeDecimals(t *testing.T) {
	assert.Equal(t, 0.123, round3(0.12345))
}
