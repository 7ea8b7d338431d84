// Package storage persists and reloads a project's index data: the
// dense embedding matrix, the sparse term index, chunks, metadata and
// file manifest.
package storage

import (
	"time"

	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/sparse"
)

// Metadata is the lightweight, chunk-free and file-free projection of a
// ProjectIndex that is persisted to metadata.json. Chunks and per-file
// records live in their own blobs so that listing projects or checking
// status never has to load chunk content.
type Metadata struct {
	ProjectID      string        `json:"project_id"`
	ProjectPath    string        `json:"project_path"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	EmbeddingModel string        `json:"embedding_model"`
	TotalChunks    int           `json:"total_chunks"`
	TotalFiles     int           `json:"total_files"`
	IndexMode      model.IndexMode `json:"index_mode"`
}

// Backend persists one project's index data. Implementations must
// validate project ids and guarantee path containment; callers never
// see a raw filesystem path.
type Backend interface {
	// SaveAll writes embeddings, the sparse payload, chunks, metadata
	// and the file manifest in that fixed order, under a single
	// exclusive lock, so a reader that finds metadata.json can rely on
	// every earlier blob being complete.
	SaveAll(projectID string, embeddings [][]float32, sparsePayload sparse.Payload, chunks []model.Chunk, meta Metadata, manifest map[string]model.FileMetadata) error

	LoadEmbeddings(projectID string) ([][]float32, error)
	LoadSparseIndex(projectID string) (*sparse.Payload, error)
	LoadChunks(projectID string) ([]model.Chunk, error)
	LoadMetadata(projectID string) (*Metadata, error)
	LoadFileManifest(projectID string) (map[string]model.FileMetadata, error)

	ProjectExists(projectID string) bool
	ListProjects() ([]string, error)
	DeleteProject(projectID string) error

	// BasePath returns the root directory projects are stored under, so
	// callers can compute on-disk size without the backend needing to
	// expose a dedicated size query for every consumer.
	BasePath() string
}
