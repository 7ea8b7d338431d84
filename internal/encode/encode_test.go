package encode

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEncoderDeterministic(t *testing.T) {
	h := NewHashEncoder(64)
	a, err := h.Encode(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	b, err := h.Encode(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashEncoderL2Normalized(t *testing.T) {
	h := NewHashEncoder(32)
	vecs, err := h.Encode(context.Background(), []string{"some chunk of text content"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestGetRejectsUnallowedModelWithoutOverride(t *testing.T) {
	Reset()
	defer Reset()
	_, err := Get(Config{ModelID: "some/random-model"})
	assert.Error(t, err)
}

func TestGetAllowsUnallowedModelWithOverride(t *testing.T) {
	Reset()
	defer Reset()
	require.NoError(t, os.Setenv(AllowCustomModelsEnv, "true"))
	defer func() { _ = os.Unsetenv(AllowCustomModelsEnv) }()

	enc, err := Get(Config{ModelID: "custom/model", Endpoint: "http://example.invalid"})
	require.NoError(t, err)
	assert.Equal(t, "custom/model", enc.ModelID())
}

func TestGetAllowsUnallowedModelWithNumericOverride(t *testing.T) {
	Reset()
	defer Reset()
	require.NoError(t, os.Setenv(AllowCustomModelsEnv, "1"))
	defer func() { _ = os.Unsetenv(AllowCustomModelsEnv) }()

	enc, err := Get(Config{ModelID: "custom/model", Endpoint: "http://example.invalid"})
	require.NoError(t, err)
	assert.Equal(t, "custom/model", enc.ModelID())
}

func TestGetAllowsUnallowedModelWithOverrideCaseInsensitive(t *testing.T) {
	Reset()
	defer Reset()
	require.NoError(t, os.Setenv(AllowCustomModelsEnv, "TRUE"))
	defer func() { _ = os.Unsetenv(AllowCustomModelsEnv) }()

	enc, err := Get(Config{ModelID: "custom/model", Endpoint: "http://example.invalid"})
	require.NoError(t, err)
	assert.Equal(t, "custom/model", enc.ModelID())
}

func TestGetIsSingleton(t *testing.T) {
	Reset()
	defer Reset()
	a, err := Get(Config{})
	require.NoError(t, err)
	b, err := Get(Config{})
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestHTTPEncoderPostsAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = []float32{0.1, 0.2, 0.3}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	enc := NewHTTPEncoder(srv.URL, "BAAI/bge-small-en-v1.5")
	vecs, err := enc.Encode(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, 3, enc.Dimensions())
}
