package encode

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var hashTokenPattern = regexp.MustCompile(`\w+`)

// HashEncoder is a deterministic, dependency-free encoder: each token
// and each overlapping character trigram of the lower-cased input is
// hashed into a bucket of a fixed-width vector, then the vector is
// L2-normalized. It has no notion of meaning, only of shared substrings,
// but it is always available and never calls out to a model loader.
type HashEncoder struct {
	dims int
}

// NewHashEncoder returns a HashEncoder producing vectors of the given width.
func NewHashEncoder(dims int) *HashEncoder {
	return &HashEncoder{dims: dims}
}

func (h *HashEncoder) ModelID() string  { return HashModelID }
func (h *HashEncoder) Dimensions() int  { return h.dims }

func (h *HashEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.encodeOne(truncate(text))
	}
	return out, nil
}

func (h *HashEncoder) encodeOne(text string) []float32 {
	vec := make([]float32, h.dims)
	lower := strings.ToLower(text)

	for _, tok := range hashTokenPattern.FindAllString(lower, -1) {
		vec[bucket(tok, h.dims)] += 1.0
		for _, g := range trigrams(tok) {
			vec[bucket(g, h.dims)] += 0.5
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func bucket(s string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}

func trigrams(s string) []string {
	if len(s) < 3 {
		return nil
	}
	out := make([]string, 0, len(s)-2)
	for i := 0; i+3 <= len(s); i++ {
		out = append(out, s[i:i+3])
	}
	return out
}
