package manager

import (
	"io/fs"
	"path/filepath"

	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/storage"
)

// ListProjects returns the project ids of every project with data on
// disk, regardless of whether it is currently loaded.
func (m *Manager) ListProjects() ([]string, error) {
	return m.storage.ListProjects()
}

// GetProjectStatus summarises a project without loading its chunks: if
// it is in the roster, the in-memory figures are used; otherwise its
// metadata blob is read directly.
func (m *Manager) GetProjectStatus(projectPath string) (*model.ProjectStatus, error) {
	projectID, err := storage.ProjectIDFromPath(projectPath)
	if err != nil {
		return nil, err
	}

	status := &model.ProjectStatus{
		ProjectID:   projectID,
		ProjectPath: projectPath,
	}

	m.mu.Lock()
	lp, loaded := m.roster.Peek(projectID)
	status.WatcherStatus = m.watcherStatusLocked(projectID, lp)
	m.mu.Unlock()

	status.Loaded = loaded
	if loaded {
		status.Indexed = true
		status.TotalChunks = lp.index.TotalChunks
		status.TotalFiles = lp.index.TotalFiles
		status.EmbeddingModel = lp.index.EmbeddingModel
		status.IndexMode = lp.index.IndexMode
		status.UpdatedAt = lp.index.UpdatedAt
		status.IndexSizeBytes = IndexSizeOnDisk(m.storage.BasePath(), projectID)
		return status, nil
	}

	if !m.storage.ProjectExists(projectID) {
		return status, nil
	}

	meta, err := m.storage.LoadMetadata(projectID)
	if err != nil {
		return nil, err
	}
	status.Indexed = true
	status.TotalChunks = meta.TotalChunks
	status.TotalFiles = meta.TotalFiles
	status.EmbeddingModel = meta.EmbeddingModel
	status.IndexMode = meta.IndexMode
	status.UpdatedAt = meta.UpdatedAt
	status.IndexSizeBytes = IndexSizeOnDisk(m.storage.BasePath(), projectID)
	return status, nil
}

// watcherStatusLocked must be called with m.mu held.
func (m *Manager) watcherStatusLocked(projectID string, lp *loadedProject) model.WatcherStatus {
	if m.circuitBroken[projectID] {
		return model.WatcherStatusCircuitBroken
	}
	if lp == nil {
		return model.WatcherStatusDisabled
	}
	if lp.watcher != nil && lp.watcher.IsRunning() {
		return model.WatcherStatusRunning
	}
	if lp.index.IndexMode == model.IndexModeRealtime {
		return model.WatcherStatusStopped
	}
	return model.WatcherStatusDisabled
}

// IndexSizeOnDisk best-effort sums the byte size of every regular file
// under the project's storage directory, skipping symlinks so a
// maliciously planted link cannot make status report an inflated or
// unbounded size.
func IndexSizeOnDisk(storageDir, projectID string) int64 {
	root := filepath.Join(storageDir, projectID)
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort: skip unreadable entries
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		total += info.Size()
		return nil
	})
	return total
}
