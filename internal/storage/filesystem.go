package storage

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/sparse"
)

const (
	embeddingsFile = "content_embeddings.gob"
	sparseFile     = "sparse_index.json"
	chunksFile     = "chunks.json"
	metadataFile   = "metadata.json"
	manifestFile   = "file_manifest.json"
	lockFile       = ".storage.lock"
)

// FilesystemStorage persists project indexes under a base directory,
// one subdirectory per project id.
type FilesystemStorage struct {
	basePath string
}

// NewFilesystemStorage returns a Backend rooted at basePath, creating it
// if necessary.
func NewFilesystemStorage(basePath string) (*FilesystemStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage base path: %w", err)
	}
	return &FilesystemStorage{basePath: abs}, nil
}

// BasePath returns the directory projects are stored under.
func (s *FilesystemStorage) BasePath() string {
	return s.basePath
}

// DefaultBasePath returns ~/.ctxengine/indexes, the default storage root.
func DefaultBasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ctxengine", "indexes"), nil
}

func (s *FilesystemStorage) indexPath(projectID string) (string, error) {
	if err := validateProjectID(projectID); err != nil {
		return "", err
	}
	path, err := filepath.Abs(filepath.Join(s.basePath, projectID))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("storage: path traversal detected for project id %q", projectID)
	}
	return path, nil
}

func (s *FilesystemStorage) ensureDir(projectID string) (string, error) {
	path, err := s.indexPath(projectID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create project storage dir: %w", err)
	}
	return path, nil
}

func (s *FilesystemStorage) SaveAll(projectID string, embeddings [][]float32, sparsePayload sparse.Payload, chunks []model.Chunk, meta Metadata, manifest map[string]model.FileMetadata) error {
	dir, err := s.ensureDir(projectID)
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(dir, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire storage lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := saveGob(filepath.Join(dir, embeddingsFile), embeddings); err != nil {
		return fmt.Errorf("save embeddings: %w", err)
	}
	if err := saveJSON(filepath.Join(dir, sparseFile), sparsePayload); err != nil {
		return fmt.Errorf("save sparse index: %w", err)
	}
	if err := saveJSON(filepath.Join(dir, chunksFile), chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	if err := saveJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	if err := saveJSON(filepath.Join(dir, manifestFile), manifest); err != nil {
		return fmt.Errorf("save file manifest: %w", err)
	}
	return nil
}

func (s *FilesystemStorage) LoadEmbeddings(projectID string) ([][]float32, error) {
	path, err := s.indexPath(projectID)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(path, embeddingsFile)
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out [][]float32
	if err := loadGob(full, &out); err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	return out, nil
}

func (s *FilesystemStorage) LoadSparseIndex(projectID string) (*sparse.Payload, error) {
	var out sparse.Payload
	ok, err := s.loadJSONIfExists(projectID, sparseFile, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *FilesystemStorage) LoadChunks(projectID string) ([]model.Chunk, error) {
	var out []model.Chunk
	ok, err := s.loadJSONIfExists(projectID, chunksFile, &out)
	if err != nil || !ok {
		return nil, err
	}
	return out, nil
}

func (s *FilesystemStorage) LoadMetadata(projectID string) (*Metadata, error) {
	var out Metadata
	ok, err := s.loadJSONIfExists(projectID, metadataFile, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *FilesystemStorage) LoadFileManifest(projectID string) (map[string]model.FileMetadata, error) {
	out := map[string]model.FileMetadata{}
	ok, err := s.loadJSONIfExists(projectID, manifestFile, &out)
	if err != nil || !ok {
		return nil, err
	}
	return out, nil
}

func (s *FilesystemStorage) loadJSONIfExists(projectID, name string, v interface{}) (bool, error) {
	path, err := s.indexPath(projectID)
	if err != nil {
		return false, err
	}
	full := filepath.Join(path, name)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

func (s *FilesystemStorage) ProjectExists(projectID string) bool {
	path, err := s.indexPath(projectID)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(path, metadataFile))
	return err == nil
}

func (s *FilesystemStorage) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !projectIDPattern.MatchString(e.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.basePath, e.Name(), metadataFile)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (s *FilesystemStorage) DeleteProject(projectID string) error {
	path, err := s.indexPath(projectID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(path)
}

func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func saveGob(path string, v interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func loadGob(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
