// Package manager owns the in-memory roster of loaded projects, their
// background watchers, and the fused query path over their sparse and
// dense indices. It is the single point of coordination between the
// indexer, the encoder and the storage backend.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ctxengine/ctxengine/internal/encode"
	"github.com/ctxengine/ctxengine/internal/ignore"
	"github.com/ctxengine/ctxengine/internal/indexer"
	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/sparse"
	"github.com/ctxengine/ctxengine/internal/storage"
	"github.com/ctxengine/ctxengine/internal/watch"
)

const (
	// MaxLoadedProjects bounds the roster; the LRU evicts the
	// least-recently-used project before this would be exceeded.
	MaxLoadedProjects = 10

	// CircuitBreakerThreshold is the number of consecutive watcher
	// callback failures that stop a project's watcher and mark it
	// circuit-broken.
	CircuitBreakerThreshold = 3

	// DefaultSemanticWeight is the fusion weight given to the semantic
	// score when a caller does not specify one.
	DefaultSemanticWeight = 0.6
)

// loadedProject is everything the manager keeps in memory for one
// project while it is in the roster.
type loadedProject struct {
	projectPath string
	index       *model.ProjectIndex
	embeddings  [][]float32
	sparseIdx   *sparse.Index
	watcher     *watch.Watcher
}

// Manager coordinates project loading, eviction, watching and querying.
// A single mutex guards the roster, the watcher map embedded in it, and
// the per-project failure counters. The encoder and storage backend are
// thread-safe on their own. ReindexProject, GetProjectStatus, query
// scoring and watcher callbacks call them outside the mutex;
// GetOrCreateIndex and QueryProject hold it while loading or building a
// project that is not yet in the roster.
type Manager struct {
	mu sync.Mutex

	storage        storage.Backend
	indexer        *indexer.Indexer
	encoder        encode.Encoder
	semanticWeight float64

	roster        *lru.Cache[string, *loadedProject]
	failures      map[string]int
	circuitBroken map[string]bool
}

// New returns a Manager. semanticWeight is clamped to [0, 1].
func New(backend storage.Backend, ix *indexer.Indexer, enc encode.Encoder, semanticWeight float64) *Manager {
	if semanticWeight < 0 {
		semanticWeight = 0
	}
	if semanticWeight > 1 {
		semanticWeight = 1
	}

	m := &Manager{
		storage:        backend,
		indexer:        ix,
		encoder:        enc,
		semanticWeight: semanticWeight,
		failures:       make(map[string]int),
		circuitBroken:  make(map[string]bool),
	}

	roster, err := lru.NewWithEvict(MaxLoadedProjects, m.onEvict)
	if err != nil {
		// Only returned by golang-lru for a non-positive size, which
		// MaxLoadedProjects never is.
		panic(fmt.Sprintf("manager: build roster: %v", err))
	}
	m.roster = roster
	return m
}

func (m *Manager) onEvict(projectID string, lp *loadedProject) {
	if lp.watcher != nil {
		lp.watcher.Stop()
		slog.Info("project evicted from roster", "project_id", projectID)
	}
}

// GetOrCreateIndex returns the project's index, building it if absent.
// A watcher is started iff mode is realtime.
func (m *Manager) GetOrCreateIndex(ctx context.Context, projectPath string, mode model.IndexMode) (*model.ProjectIndex, error) {
	projectID, err := storage.ProjectIDFromPath(projectPath)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if lp, ok := m.roster.Get(projectID); ok {
		return lp.index, nil
	}

	lp, err := m.loadOrBuildLocked(ctx, projectPath, projectID, mode)
	if err != nil {
		return nil, err
	}
	m.roster.Add(projectID, lp)
	return lp.index, nil
}

// ReindexProject forces a full rebuild, preserving the project's prior
// index_mode and clearing any circuit-breaker state.
func (m *Manager) ReindexProject(ctx context.Context, projectPath string) (*model.ProjectIndex, error) {
	projectID, err := storage.ProjectIDFromPath(projectPath)
	if err != nil {
		return nil, err
	}

	mode := model.IndexModeRealtime
	if meta, err := m.storage.LoadMetadata(projectID); err == nil && meta != nil {
		mode = meta.IndexMode
	}

	idx, err := m.indexer.IndexProject(ctx, projectPath, projectID, mode)
	if err != nil {
		return nil, err
	}

	lp, err := m.loadFromStorageLocked(projectID, projectPath)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.roster.Peek(projectID); ok && old.watcher != nil {
		old.watcher.Stop()
	}
	delete(m.failures, projectID)
	delete(m.circuitBroken, projectID)

	if mode == model.IndexModeRealtime {
		lp.watcher = m.startWatcherLocked(projectPath, projectID)
	}
	m.roster.Add(projectID, lp)
	return idx, nil
}

// Shutdown stops every running watcher and drops every cached project.
// Watchers are snapshotted under the lock, then stopped outside it, so
// that a watcher callback racing with Shutdown never deadlocks against
// the manager mutex.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	watchers := make([]*watch.Watcher, 0, m.roster.Len())
	for _, projectID := range m.roster.Keys() {
		if lp, ok := m.roster.Peek(projectID); ok && lp.watcher != nil {
			watchers = append(watchers, lp.watcher)
		}
	}
	m.roster.Purge()
	m.failures = make(map[string]int)
	m.circuitBroken = make(map[string]bool)
	m.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
}

// loadOrBuildLocked must be called with m.mu held. It loads a project
// already on disk, or builds it from scratch.
func (m *Manager) loadOrBuildLocked(ctx context.Context, projectPath, projectID string, mode model.IndexMode) (*loadedProject, error) {
	if m.storage.ProjectExists(projectID) {
		lp, err := m.buildLoadedProject(projectID, projectPath)
		if err != nil {
			return nil, err
		}
		if lp.index.IndexMode == model.IndexModeRealtime {
			lp.watcher = m.startWatcherLocked(projectPath, projectID)
		}
		return lp, nil
	}

	idx, err := m.indexer.IndexProject(ctx, projectPath, projectID, mode)
	if err != nil {
		return nil, err
	}

	lp := &loadedProject{projectPath: projectPath, index: idx}
	if embeddings, err := m.storage.LoadEmbeddings(projectID); err == nil {
		lp.embeddings = embeddings
	}
	if payload, err := m.storage.LoadSparseIndex(projectID); err == nil && payload != nil {
		lp.sparseIdx = sparse.Build(payload.TokenizedCorpus)
	}

	delete(m.failures, projectID)
	delete(m.circuitBroken, projectID)

	if mode == model.IndexModeRealtime {
		lp.watcher = m.startWatcherLocked(projectPath, projectID)
	}
	return lp, nil
}

// loadFromStorageLocked is used by ReindexProject, which performs
// storage I/O before taking m.mu; startWatcherLocked is invoked
// separately, under the lock, by the caller.
func (m *Manager) loadFromStorageLocked(projectID, projectPath string) (*loadedProject, error) {
	return m.buildLoadedProject(projectID, projectPath)
}

func (m *Manager) buildLoadedProject(projectID, projectPath string) (*loadedProject, error) {
	meta, err := m.storage.LoadMetadata(projectID)
	if err != nil {
		return nil, fmt.Errorf("load project metadata: %w", err)
	}
	chunks, err := m.storage.LoadChunks(projectID)
	if err != nil {
		return nil, fmt.Errorf("load project chunks: %w", err)
	}
	manifest, err := m.storage.LoadFileManifest(projectID)
	if err != nil {
		return nil, fmt.Errorf("load project file manifest: %w", err)
	}

	idx := &model.ProjectIndex{
		ProjectID:      projectID,
		ProjectPath:    projectPath,
		Chunks:         chunks,
		Files:          manifest,
		CreatedAt:      meta.CreatedAt,
		UpdatedAt:      meta.UpdatedAt,
		EmbeddingModel: meta.EmbeddingModel,
		TotalChunks:    meta.TotalChunks,
		TotalFiles:     meta.TotalFiles,
		IndexMode:      meta.IndexMode,
	}

	lp := &loadedProject{projectPath: projectPath, index: idx}

	if meta.EmbeddingModel == m.encoder.ModelID() {
		if embeddings, err := m.storage.LoadEmbeddings(projectID); err == nil {
			lp.embeddings = embeddings
		}
	} else {
		slog.Warn("stored embedding model differs from active encoder, operating sparse-only",
			"project_id", projectID, "stored_model", meta.EmbeddingModel, "active_model", m.encoder.ModelID())
	}

	if payload, err := m.storage.LoadSparseIndex(projectID); err == nil && payload != nil {
		lp.sparseIdx = sparse.Build(payload.TokenizedCorpus)
	}

	return lp, nil
}

func (m *Manager) startWatcherLocked(projectPath, projectID string) *watch.Watcher {
	matcher := ignore.New()
	if err := matcher.LoadIgnoreFile(projectPath); err != nil {
		slog.Warn("failed to load project ignore file for watcher, using defaults only", "error", err)
	}

	w := watch.New(projectPath, matcher, func(changed []string) {
		m.onWatcherChange(projectPath, projectID, changed)
	})
	if err := w.Start(); err != nil {
		slog.Warn("failed to start project watcher", "project_id", projectID, "error", err)
		return nil
	}
	return w
}

// onWatcherChange re-indexes a project after a debounced burst of
// filesystem changes. The re-index and reload happen outside the
// manager lock; only the in-memory snapshot swap and the
// failure-counter bookkeeping happen under it.
func (m *Manager) onWatcherChange(projectPath, projectID string, changed []string) {
	idx, err := m.indexer.IncrementalUpdate(context.Background(), projectPath, projectID, changed)

	var embeddings [][]float32
	var sparseIdx *sparse.Index
	if err == nil {
		embeddings, _ = m.storage.LoadEmbeddings(projectID)
		if payload, loadErr := m.storage.LoadSparseIndex(projectID); loadErr == nil && payload != nil {
			sparseIdx = sparse.Build(payload.TokenizedCorpus)
		}
	}

	m.mu.Lock()
	if err != nil {
		m.failures[projectID]++
		failures := m.failures[projectID]
		var watcherToStop *watch.Watcher
		if failures >= CircuitBreakerThreshold {
			m.circuitBroken[projectID] = true
			if lp, ok := m.roster.Peek(projectID); ok {
				watcherToStop = lp.watcher
				lp.watcher = nil
			}
		}
		m.mu.Unlock()

		slog.Warn("watcher-triggered re-index failed", "project_id", projectID, "error", err, "consecutive_failures", failures)
		if watcherToStop != nil {
			watcherToStop.Stop()
			slog.Warn("circuit breaker tripped, watcher stopped", "project_id", projectID)
		}
		return
	}

	if lp, ok := m.roster.Peek(projectID); ok {
		lp.index = idx
		lp.embeddings = embeddings
		lp.sparseIdx = sparseIdx
	}
	delete(m.failures, projectID)
	delete(m.circuitBroken, projectID)
	m.mu.Unlock()

	slog.Info("watcher-triggered re-index complete", "project_id", projectID, "changed_files", len(changed))
}
