package encode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// HTTPEncoder delegates to an external embedding server speaking the
// request/response shape Ollama exposes at POST /api/embed. Dimensions
// is learned from the first successful response and cached.
type HTTPEncoder struct {
	endpoint string
	modelID  string
	client   *http.Client

	mu   sync.Mutex
	dims int
}

// NewHTTPEncoder returns an encoder that POSTs to endpoint+"/api/embed".
func NewHTTPEncoder(endpoint, modelID string) *HTTPEncoder {
	return &HTTPEncoder{
		endpoint: endpoint,
		modelID:  modelID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *HTTPEncoder) ModelID() string { return e.modelID }

func (e *HTTPEncoder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *HTTPEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = truncate(t)
	}

	body, err := json.Marshal(embedRequest{Model: e.modelID, Input: truncated})
	if err != nil {
		return nil, fmt.Errorf("encode: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("encode: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encode: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("encode: embedding server returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("encode: decode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("encode: expected %d embeddings, got %d", len(texts), len(out.Embeddings))
	}

	if len(out.Embeddings) > 0 {
		e.mu.Lock()
		e.dims = len(out.Embeddings[0])
		e.mu.Unlock()
	}

	return out.Embeddings, nil
}
