// Package encode turns chunk text into fixed-width dense vectors.
package encode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// MaxEmbeddingInputChars caps how much of a chunk's content is handed
// to an encoder; longer inputs are truncated, not rejected.
const MaxEmbeddingInputChars = 2048

// BatchSize bounds how many texts are encoded in a single Encode call
// during bulk indexing, to keep peak memory bounded.
const BatchSize = 1000

// HashModelID is the identifier of the always-available, dependency-free
// fallback encoder.
const HashModelID = "static-hash-768"

// AllowedModels is the set of embedding model identifiers ctxengine will
// load without an explicit opt-in. It exists to stop an attacker who
// controls project configuration from pointing the encoder at an
// arbitrary, possibly malicious, model loader.
var AllowedModels = map[string]bool{
	HashModelID:                                true,
	"BAAI/bge-small-en-v1.5":                    true,
	"BAAI/bge-base-en-v1.5":                     true,
	"BAAI/bge-large-en-v1.5":                    true,
	"sentence-transformers/all-MiniLM-L6-v2":    true,
	"sentence-transformers/all-MiniLM-L12-v2":   true,
	"sentence-transformers/all-mpnet-base-v2":   true,
}

// AllowCustomModelsEnv, when set to "true", bypasses AllowedModels.
const AllowCustomModelsEnv = "CTXENGINE_ALLOW_CUSTOM_MODELS"

// Encoder produces dense vectors for a batch of strings. Implementations
// must be safe for concurrent use once constructed.
type Encoder interface {
	ModelID() string
	Dimensions() int
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Config selects and parameterizes an Encoder.
type Config struct {
	ModelID    string // "" selects HashModelID
	Dimensions int    // used by HashEncoder; ignored by HTTPEncoder once connected
	Endpoint   string // base URL for HTTPEncoder, e.g. http://localhost:11434
}

var (
	mu       sync.Mutex
	instance Encoder
	built    Config
)

// Get returns the process-wide encoder for cfg, constructing it on the
// first call and reusing it thereafter. Concurrent callers serialize on
// construction only; the returned Encoder is then used lock-free.
func Get(cfg Config) (Encoder, error) {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		if built != cfg {
			slog.Warn("encoder already initialized with a different configuration; ignoring new config",
				"active_model", built.ModelID, "requested_model", cfg.ModelID)
		}
		return instance, nil
	}

	enc, err := newEncoder(cfg)
	if err != nil {
		return nil, err
	}
	instance = enc
	built = cfg
	return instance, nil
}

// Reset clears the process-wide singleton. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	built = Config{}
}

func newEncoder(cfg Config) (Encoder, error) {
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = HashModelID
	}

	if !AllowedModels[modelID] {
		allow := strings.ToLower(os.Getenv(AllowCustomModelsEnv))
		if allow == "true" || allow == "1" {
			slog.Warn("loading embedding model outside the allowlist", "model", modelID)
		} else {
			return nil, fmt.Errorf("encode: model %q is not in the allowlist; set %s=true to override", modelID, AllowCustomModelsEnv)
		}
	}

	if modelID == HashModelID {
		dims := cfg.Dimensions
		if dims <= 0 {
			dims = 768
		}
		return NewHashEncoder(dims), nil
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("encode: model %q requires an endpoint", modelID)
	}
	return NewHTTPEncoder(cfg.Endpoint, modelID), nil
}

// truncate clips s to MaxEmbeddingInputChars runes.
func truncate(s string) string {
	if len(s) <= MaxEmbeddingInputChars {
		return s
	}
	r := []rune(s)
	if len(r) <= MaxEmbeddingInputChars {
		return s
	}
	return string(r[:MaxEmbeddingInputChars])
}
