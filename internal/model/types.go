// Package model defines the data types shared across the indexing,
// storage, search and tool-serving layers.
package model

import "time"

// ContentType classifies how a chunk's content was produced.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeDocument ContentType = "document"
	ContentTypeData     ContentType = "data"
	ContentTypeImage    ContentType = "image"
)

// IndexMode controls whether a project keeps a background file watcher
// running after it is first indexed.
type IndexMode string

const (
	IndexModeRealtime IndexMode = "realtime"
	IndexModeOnDemand IndexMode = "ondemand"
)

// Chunk is a retrievable unit of content extracted from a single file.
type Chunk struct {
	Content     string      // chunk text, truncated to MaxChunkContentChars
	SourcePath  string      // path relative to the project root
	StartLine   int         // 1-indexed, inclusive
	EndLine     int         // 1-indexed, inclusive
	ContentType ContentType
	Language    string // e.g. "go", "python"; "" when not applicable
	Heading     string // markdown heading, "Page N", "Schema..." or "Image metadata: ..."; "" when absent
	EmbeddingID int    // row index into the project's embedding matrix, -1 when unassigned
}

// FileMetadata records what was indexed from a single file, without
// carrying the chunk content itself.
type FileMetadata struct {
	Path         string
	ContentType  ContentType
	Language     string
	SizeBytes    int64
	LastModified int64 // epoch seconds
	ContentHash  string
	ChunkCount   int
}

// ProjectIndex is the in-memory representation of everything known about
// one indexed project. Chunks[i].EmbeddingID == i for every i once the
// index has embeddings; see internal/storage for the on-disk layout.
type ProjectIndex struct {
	ProjectID      string
	ProjectPath    string
	Chunks         []Chunk
	Files          map[string]FileMetadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EmbeddingModel string
	TotalChunks    int
	TotalFiles     int
	IndexMode      IndexMode
}

// QueryResult is a single scored chunk returned from a search.
type QueryResult struct {
	Content      string      `json:"content"`
	SourcePath   string      `json:"source_path"`
	StartLine    int         `json:"start_line"`
	EndLine      int         `json:"end_line"`
	ContentType  ContentType `json:"content_type"`
	Heading      string      `json:"heading,omitempty"`
	Score        float64     `json:"score"`
	SemanticPart float64     `json:"semantic_score"`
	SparsePart   float64     `json:"sparse_score"`
}

// ProjectQueryResult is the manager's answer to a project query; the
// query_project tool reshapes it into its own output type.
type ProjectQueryResult struct {
	Results      []QueryResult `json:"results"`
	TotalResults int           `json:"total_results"`
	ProjectID    string        `json:"project_id"`
}

// WatcherStatus summarizes the live state of a project's background
// watcher, independent of whether the project is currently loaded.
type WatcherStatus string

const (
	WatcherStatusDisabled      WatcherStatus = "disabled"
	WatcherStatusRunning       WatcherStatus = "running"
	WatcherStatusStopped       WatcherStatus = "stopped"
	WatcherStatusCircuitBroken WatcherStatus = "circuit_broken"
)

// ProjectStatus is the response to a project_status tool call.
type ProjectStatus struct {
	ProjectID      string        `json:"project_id"`
	ProjectPath    string        `json:"project_path"`
	Loaded         bool          `json:"loaded"`
	Indexed        bool          `json:"indexed"`
	TotalChunks    int           `json:"total_chunks"`
	TotalFiles     int           `json:"total_files"`
	EmbeddingModel string        `json:"embedding_model"`
	IndexMode      IndexMode     `json:"index_mode"`
	WatcherStatus  WatcherStatus `json:"watcher_status"`
	UpdatedAt      time.Time     `json:"updated_at"`
	IndexSizeBytes int64         `json:"index_size_bytes"`
}
