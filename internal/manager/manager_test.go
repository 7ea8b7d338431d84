package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxengine/ctxengine/internal/encode"
	"github.com/ctxengine/ctxengine/internal/indexer"
	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/storage"
)

func newTestManager(t *testing.T) *Manager {
	backend, err := storage.NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	enc := encode.NewHashEncoder(32)
	ix := indexer.New(backend, enc)
	return New(backend, ix, enc, DefaultSemanticWeight)
}

func writeProject(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestGetOrCreateIndexBuildsThenReusesFromRoster(t *testing.T) {
	m := newTestManager(t)
	dir := writeProject(t, map[string]string{
		"a.go": "package a\n\nfunc Alpha() {}\n",
	})

	idx, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeOnDemand)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.TotalFiles)

	idx2, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeOnDemand)
	require.NoError(t, err)
	assert.Same(t, idx, idx2)
}

func TestQueryProjectRanksMatchingChunkFirst(t *testing.T) {
	m := newTestManager(t)
	dir := writeProject(t, map[string]string{
		"needle.txt": "banana banana banana treasure hunt across the savanna\n",
		"hay.txt":    "completely unrelated filler content about weather patterns\n",
	})

	_, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeOnDemand)
	require.NoError(t, err)

	res, err := m.QueryProject(context.Background(), "banana treasure", dir, 5)
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "needle.txt", res.Results[0].SourcePath)
	assert.Greater(t, res.Results[0].Score, 0.0)
}

func TestQueryProjectOnEmptyProjectReturnsNoResults(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()

	res, err := m.QueryProject(context.Background(), "anything", dir, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalResults)
	assert.Empty(t, res.Results)
}

func TestReindexProjectPreservesIndexModeAndClearsFailures(t *testing.T) {
	m := newTestManager(t)
	dir := writeProject(t, map[string]string{"a.txt": "hello world"})

	_, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeOnDemand)
	require.NoError(t, err)

	projectID, err := storage.ProjectIDFromPath(dir)
	require.NoError(t, err)
	m.mu.Lock()
	m.failures[projectID] = 2
	m.circuitBroken[projectID] = true
	m.mu.Unlock()

	idx, err := m.ReindexProject(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, model.IndexModeOnDemand, idx.IndexMode)

	m.mu.Lock()
	_, stillBroken := m.circuitBroken[projectID]
	_, stillCounted := m.failures[projectID]
	m.mu.Unlock()
	assert.False(t, stillBroken)
	assert.False(t, stillCounted)
}

func TestGetProjectStatusForUnindexedProject(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()

	status, err := m.GetProjectStatus(dir)
	require.NoError(t, err)
	assert.False(t, status.Loaded)
	assert.False(t, status.Indexed)
	assert.Equal(t, model.WatcherStatusDisabled, status.WatcherStatus)
}

func TestGetProjectStatusForLoadedProject(t *testing.T) {
	m := newTestManager(t)
	dir := writeProject(t, map[string]string{"a.txt": "content"})

	_, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeOnDemand)
	require.NoError(t, err)

	status, err := m.GetProjectStatus(dir)
	require.NoError(t, err)
	assert.True(t, status.Loaded)
	assert.True(t, status.Indexed)
	assert.Equal(t, 1, status.TotalFiles)
}

func TestGetProjectStatusReportsIndexSizeOnDisk(t *testing.T) {
	m := newTestManager(t)
	dir := writeProject(t, map[string]string{"a.txt": "some content to embed and persist"})

	_, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeOnDemand)
	require.NoError(t, err)

	status, err := m.GetProjectStatus(dir)
	require.NoError(t, err)
	assert.Greater(t, status.IndexSizeBytes, int64(0))
}

func TestListProjectsReturnsEveryStoredProject(t *testing.T) {
	m := newTestManager(t)
	dirA := writeProject(t, map[string]string{"a.txt": "a"})
	dirB := writeProject(t, map[string]string{"b.txt": "b"})

	_, err := m.GetOrCreateIndex(context.Background(), dirA, model.IndexModeOnDemand)
	require.NoError(t, err)
	_, err = m.GetOrCreateIndex(context.Background(), dirB, model.IndexModeOnDemand)
	require.NoError(t, err)

	ids, err := m.ListProjects()
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestRosterEvictsLeastRecentlyUsedBeyondCapacity(t *testing.T) {
	m := newTestManager(t)

	var ids []string
	for i := 0; i < MaxLoadedProjects+2; i++ {
		dir := writeProject(t, map[string]string{"a.txt": "content"})
		_, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeOnDemand)
		require.NoError(t, err)
		id, err := storage.ProjectIDFromPath(dir)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	assert.Equal(t, MaxLoadedProjects, m.roster.Len())
	_, ok := m.roster.Peek(ids[0])
	assert.False(t, ok, "oldest project should have been evicted")
	_, ok = m.roster.Peek(ids[len(ids)-1])
	assert.True(t, ok, "most recently loaded project should remain")
}

func TestShutdownStopsWatchersAndClearsRoster(t *testing.T) {
	m := newTestManager(t)
	dir := writeProject(t, map[string]string{"a.txt": "content"})

	_, err := m.GetOrCreateIndex(context.Background(), dir, model.IndexModeRealtime)
	require.NoError(t, err)
	assert.Equal(t, 1, m.roster.Len())

	m.Shutdown()
	assert.Equal(t, 0, m.roster.Len())
}
