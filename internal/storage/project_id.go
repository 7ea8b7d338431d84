package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
)

// projectIDPattern matches the hex-only shape a project id must have:
// the output of ProjectIDFromPath, or anything from an older or future
// truncation of the same hash. Rejecting anything else is what stops a
// project id from being used to escape the storage root.
var projectIDPattern = regexp.MustCompile(`^[0-9a-f]{1,64}$`)

// ProjectIDFromPath derives a stable project id from an absolute
// project path: the first 16 hex characters of the SHA-256 of the
// canonicalized path.
func ProjectIDFromPath(projectPath string) (string, error) {
	resolved, err := filepath.EvalSymlinks(projectPath)
	if err != nil {
		resolved, err = filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("resolve project path: %w", err)
		}
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:16], nil
}

func validateProjectID(id string) error {
	if !projectIDPattern.MatchString(id) {
		return fmt.Errorf("invalid project id %q: must be 1-64 hex characters", id)
	}
	return nil
}
