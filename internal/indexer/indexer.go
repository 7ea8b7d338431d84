// Package indexer builds a ProjectIndex by walking a project, parsing
// its files into chunks, embedding them and persisting the result.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ctxengine/ctxengine/internal/encode"
	"github.com/ctxengine/ctxengine/internal/ignore"
	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/parse"
	"github.com/ctxengine/ctxengine/internal/sparse"
	"github.com/ctxengine/ctxengine/internal/storage"
	"github.com/ctxengine/ctxengine/internal/walk"
)

const (
	// MaxTotalChunks bounds how many chunks a single index build keeps,
	// across every file, to keep embedding memory bounded.
	MaxTotalChunks = 100_000
	// MaxChunkContentChars truncates any single chunk's content; the
	// source file on disk still has the full text.
	MaxChunkContentChars = 10_000
)

// Indexer builds and persists ProjectIndex values.
type Indexer struct {
	Storage    storage.Backend
	Dispatcher *parse.Dispatcher
	Encoder    encode.Encoder
}

// New returns an Indexer with a default parser dispatcher.
func New(backend storage.Backend, enc encode.Encoder) *Indexer {
	return &Indexer{Storage: backend, Dispatcher: parse.NewDispatcher(), Encoder: enc}
}

// IndexProject performs a full index build: discover files, parse them
// into chunks, embed, build the sparse index, and persist everything.
func (ix *Indexer) IndexProject(ctx context.Context, projectPath, projectID string, mode model.IndexMode) (*model.ProjectIndex, error) {
	matcher := ignore.New()
	if err := matcher.LoadIgnoreFile(projectPath); err != nil {
		slog.Warn("failed to load project ignore file, using defaults only", "error", err)
	}

	candidates, err := walk.Walk(projectPath, matcher, ix.Dispatcher.Handles)
	if err != nil {
		return nil, fmt.Errorf("walk project: %w", err)
	}
	slog.Info("discovered files to index", "count", len(candidates))

	perFile := make([][]model.Chunk, len(candidates))
	metaByPath := make([]*model.FileMetadata, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.NumCPU()))
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			chunks, fm, err := ix.parseOne(cand)
			if err != nil {
				slog.Warn("failed to parse file, skipping", "path", cand.RelPath, "error", err)
				return nil
			}
			perFile[i] = chunks
			metaByPath[i] = fm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var allChunks []model.Chunk
	var allMeta []model.FileMetadata
	for i := range candidates {
		if metaByPath[i] == nil {
			continue
		}
		allChunks = append(allChunks, perFile[i]...)
		allMeta = append(allMeta, *metaByPath[i])

		if len(allChunks) >= MaxTotalChunks {
			slog.Warn("chunk limit reached, remaining files skipped", "limit", MaxTotalChunks)
			break
		}
	}

	for i := range allChunks {
		allChunks[i].EmbeddingID = i
	}

	embeddings, err := ix.embedAll(ctx, allChunks)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}

	contents := make([]string, len(allChunks))
	for i, c := range allChunks {
		contents[i] = c.Content
	}
	sparsePayload := sparse.BuildPayload(contents)

	now := time.Now().UTC()
	index := &model.ProjectIndex{
		ProjectID:      projectID,
		ProjectPath:    projectPath,
		Chunks:         allChunks,
		Files:          filesByPath(allMeta),
		CreatedAt:      now,
		UpdatedAt:      now,
		EmbeddingModel: ix.Encoder.ModelID(),
		TotalChunks:    len(allChunks),
		TotalFiles:     len(allMeta),
		IndexMode:      mode,
	}

	meta := storage.Metadata{
		ProjectID:      projectID,
		ProjectPath:    projectPath,
		CreatedAt:      index.CreatedAt,
		UpdatedAt:      index.UpdatedAt,
		EmbeddingModel: index.EmbeddingModel,
		TotalChunks:    index.TotalChunks,
		TotalFiles:     index.TotalFiles,
		IndexMode:      index.IndexMode,
	}

	if err := ix.Storage.SaveAll(projectID, embeddings, sparsePayload, allChunks, meta, index.Files); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}

	slog.Info("project indexed", "chunks", len(allChunks), "files", len(allMeta))
	return index, nil
}

// IncrementalUpdate always performs a full re-index; true incremental
// chunk replacement is not implemented. It exists so callers have a
// stable name for "something changed, bring the index up to date" and
// so the preserved index_mode behavior lives in one place.
func (ix *Indexer) IncrementalUpdate(ctx context.Context, projectPath, projectID string, changedFiles []string) (*model.ProjectIndex, error) {
	existing, err := ix.Storage.LoadMetadata(projectID)
	if err != nil {
		return nil, err
	}
	mode := model.IndexModeOnDemand
	if existing != nil {
		mode = existing.IndexMode
	}
	slog.Warn("incremental update falls back to full re-index", "changed_files", len(changedFiles))
	return ix.IndexProject(ctx, projectPath, projectID, mode)
}

func (ix *Indexer) parseOne(cand walk.Candidate) ([]model.Chunk, *model.FileMetadata, error) {
	chunks, handled, err := ix.Dispatcher.Parse(cand.AbsPath, cand.RelPath)
	if err != nil {
		return nil, nil, err
	}
	if !handled {
		return nil, nil, nil
	}

	for i := range chunks {
		if len(chunks[i].Content) > MaxChunkContentChars {
			chunks[i].Content = chunks[i].Content[:MaxChunkContentChars]
		}
	}

	hash, err := fileHash(cand.AbsPath)
	if err != nil {
		return nil, nil, err
	}

	contentType, language := model.ContentTypeCode, ""
	if len(chunks) > 0 {
		contentType = chunks[0].ContentType
		language = chunks[0].Language
	}

	fm := &model.FileMetadata{
		Path:         cand.RelPath,
		ContentType:  contentType,
		Language:     language,
		SizeBytes:    cand.Size,
		LastModified: cand.ModTime,
		ContentHash:  hash,
		ChunkCount:   len(chunks),
	}
	return chunks, fm, nil
}

func (ix *Indexer) embedAll(ctx context.Context, chunks []model.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(chunks))
	for start := 0; start < len(chunks); start += encode.BatchSize {
		end := min(start+encode.BatchSize, len(chunks))
		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = chunks[i].Content
		}
		vecs, err := ix.Encoder.Encode(ctx, texts)
		if err != nil {
			return nil, err
		}
		copy(out[start:end], vecs)
	}
	return out, nil
}

func filesByPath(metas []model.FileMetadata) map[string]model.FileMetadata {
	out := make(map[string]model.FileMetadata, len(metas))
	for _, m := range metas {
		out[m.Path] = m
	}
	return out
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

