package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/sparse"
)

func newTestStorage(t *testing.T) *FilesystemStorage {
	s, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestProjectIDFromPathIsStableAndHex(t *testing.T) {
	a, err := ProjectIDFromPath("/some/project")
	require.NoError(t, err)
	b, err := ProjectIDFromPath("/some/project")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", a)
}

func TestProjectIDFromPathResolvesSymlinksToSameID(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(real, link))

	viaLink, err := ProjectIDFromPath(link)
	require.NoError(t, err)
	viaReal, err := ProjectIDFromPath(real)
	require.NoError(t, err)
	assert.Equal(t, viaReal, viaLink)
}

func TestIndexPathRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.indexPath("../etc")
	assert.Error(t, err)
	_, err = s.indexPath("not-hex!!")
	assert.Error(t, err)
}

func TestSaveAllThenLoadRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	embeddings := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	sp := sparse.BuildPayload([]string{"hello world", "foo bar"})
	chunks := []model.Chunk{{Content: "hello world", SourcePath: "a.txt", EmbeddingID: 0}, {Content: "foo bar", SourcePath: "b.txt", EmbeddingID: 1}}
	meta := Metadata{ProjectID: "abc123", ProjectPath: "/p", CreatedAt: time.Now(), UpdatedAt: time.Now(), EmbeddingModel: "static-hash-768", TotalChunks: 2, TotalFiles: 2, IndexMode: model.IndexModeOnDemand}
	manifest := map[string]model.FileMetadata{"a.txt": {Path: "a.txt", ChunkCount: 1}}

	require.NoError(t, s.SaveAll("abc123def4567890", embeddings, sp, chunks, meta, manifest))

	gotEmb, err := s.LoadEmbeddings("abc123def4567890")
	require.NoError(t, err)
	assert.Equal(t, embeddings, gotEmb)

	gotSparse, err := s.LoadSparseIndex("abc123def4567890")
	require.NoError(t, err)
	assert.Equal(t, sp.ChunkCount, gotSparse.ChunkCount)

	gotChunks, err := s.LoadChunks("abc123def4567890")
	require.NoError(t, err)
	assert.Len(t, gotChunks, 2)

	gotMeta, err := s.LoadMetadata("abc123def4567890")
	require.NoError(t, err)
	assert.Equal(t, "static-hash-768", gotMeta.EmbeddingModel)

	gotManifest, err := s.LoadFileManifest("abc123def4567890")
	require.NoError(t, err)
	assert.Contains(t, gotManifest, "a.txt")

	assert.True(t, s.ProjectExists("abc123def4567890"))
	ids, err := s.ListProjects()
	require.NoError(t, err)
	assert.Contains(t, ids, "abc123def4567890")
}

func TestLoadMissingProjectReturnsNilNotError(t *testing.T) {
	s := newTestStorage(t)
	emb, err := s.LoadEmbeddings("0000000000000000")
	require.NoError(t, err)
	assert.Nil(t, emb)
	assert.False(t, s.ProjectExists("0000000000000000"))
}

func TestDeleteProjectRemovesDirectory(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SaveAll("1111111111111111", nil, sparse.Payload{}, nil, Metadata{}, nil))
	assert.True(t, s.ProjectExists("1111111111111111"))
	require.NoError(t, s.DeleteProject("1111111111111111"))
	assert.False(t, s.ProjectExists("1111111111111111"))
}

func TestDefaultBasePathIsUnderHome(t *testing.T) {
	p, err := DefaultBasePath()
	require.NoError(t, err)
	assert.Equal(t, "indexes", filepath.Base(p))
	assert.Equal(t, ".ctxengine", filepath.Base(filepath.Dir(p)))
}
