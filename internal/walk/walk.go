// Package walk enumerates indexable files beneath a project root.
package walk

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ctxengine/ctxengine/internal/ignore"
)

const (
	// MaxFiles bounds how many indexable candidates a single walk returns.
	MaxFiles = 10_000
	// MaxFileBytes is the per-file size cap; larger files are skipped.
	MaxFileBytes = 10 * 1024 * 1024
)

// Candidate is one file eligible for parsing.
type Candidate struct {
	AbsPath string
	RelPath string // slash-separated, relative to root
	Size    int64
	ModTime int64 // epoch seconds
}

// Walk enumerates regular files under root, in deterministic (sorted by
// RelPath) order. Symlinked files and symlinked directories are never
// followed or returned — this is the sole defence against indexing
// content outside the project root. canHandle, when non-nil, filters
// candidates down to those some parser can handle, folding dispatch
// routing into the walk itself; only files that pass it count against
// MaxFiles. Walking stops once MaxFiles indexable candidates have been
// collected.
func Walk(root string, matcher *ignore.Matcher, canHandle func(relPath string) bool) ([]Candidate, error) {
	var out []Candidate

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}

		if d.Type()&os.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matcher != nil && matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher != nil && matcher.Match(rel, false) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		if info.Size() > MaxFileBytes {
			return nil
		}
		if canHandle != nil && !canHandle(rel) {
			return nil
		}

		out = append(out, Candidate{
			AbsPath: path,
			RelPath: rel,
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})

		if len(out) >= MaxFiles {
			return errStop
		}
		return nil
	})

	if err != nil && err != errStop {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

var errStop = walkStopError{}

type walkStopError struct{}

func (walkStopError) Error() string { return "walk: max files reached" }
