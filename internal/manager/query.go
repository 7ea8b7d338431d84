package manager

import (
	"context"
	"fmt"
	"sort"

	"github.com/ctxengine/ctxengine/internal/model"
	"github.com/ctxengine/ctxengine/internal/sparse"
	"github.com/ctxengine/ctxengine/internal/storage"
)

// QueryProject loads or builds the project at projectPath if needed,
// fuses semantic and sparse scores over its chunks, and returns the
// top maxResults by combined score.
func (m *Manager) QueryProject(ctx context.Context, query, projectPath string, maxResults int) (*model.ProjectQueryResult, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	projectID, err := storage.ProjectIDFromPath(projectPath)
	if err != nil {
		return nil, err
	}

	lp, err := m.ensureLoaded(ctx, projectPath, projectID)
	if err != nil {
		return nil, err
	}

	if len(lp.index.Chunks) == 0 {
		return &model.ProjectQueryResult{ProjectID: projectID}, nil
	}

	semantic, err := m.semanticScores(ctx, query, lp)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	sparseScores := m.sparseScores(query, lp)

	type scored struct {
		idx      int
		combined float64
	}
	ranked := make([]scored, len(lp.index.Chunks))
	for i := range lp.index.Chunks {
		combined := m.semanticWeight*semantic[i] + (1-m.semanticWeight)*sparseScores[i]
		ranked[i] = scored{idx: i, combined: combined}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].combined > ranked[j].combined })

	results := make([]model.QueryResult, 0, maxResults)
	for _, r := range ranked {
		if r.combined <= 0 {
			break
		}
		if len(results) >= maxResults {
			break
		}
		c := lp.index.Chunks[r.idx]
		results = append(results, model.QueryResult{
			Content:      c.Content,
			SourcePath:   c.SourcePath,
			StartLine:    c.StartLine,
			EndLine:      c.EndLine,
			ContentType:  c.ContentType,
			Heading:      c.Heading,
			Score:        r.combined,
			SemanticPart: semantic[r.idx],
			SparsePart:   sparseScores[r.idx],
		})
	}

	return &model.ProjectQueryResult{
		Results:      results,
		TotalResults: len(results),
		ProjectID:    projectID,
	}, nil
}

// ensureLoaded returns the roster entry for projectID, loading it from
// storage or building it from scratch (as a realtime project) if it
// is not already loaded. This mirrors GetOrCreateIndex's locking but
// defaults the mode to realtime when nothing is on disk yet.
func (m *Manager) ensureLoaded(ctx context.Context, projectPath, projectID string) (*loadedProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lp, ok := m.roster.Get(projectID); ok {
		return lp, nil
	}

	lp, err := m.loadOrBuildLocked(ctx, projectPath, projectID, model.IndexModeRealtime)
	if err != nil {
		return nil, err
	}
	m.roster.Add(projectID, lp)
	return lp, nil
}

// semanticScores encodes the query once and returns the clamped cosine
// similarity (dot product, since rows are L2-normalised) against every
// chunk's embedding row. It returns an all-zero vector when the
// project has no usable dense matrix (discarded due to a model
// mismatch, or never embedded).
func (m *Manager) semanticScores(ctx context.Context, query string, lp *loadedProject) ([]float64, error) {
	n := len(lp.index.Chunks)
	scores := make([]float64, n)
	if len(lp.embeddings) != n {
		return scores, nil
	}

	vecs, err := m.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return scores, nil
	}
	q := vecs[0]

	for i, row := range lp.embeddings {
		var dot float64
		width := len(q)
		if len(row) < width {
			width = len(row)
		}
		for j := 0; j < width; j++ {
			dot += float64(q[j]) * float64(row[j])
		}
		scores[i] = clamp01(dot)
	}
	return scores, nil
}

// sparseScores tokenises the query with the same tokenizer used to
// build the corpus, scores it with BM25, and normalises by the
// per-query maximum so fusion weights are comparable with the
// semantic score's [0, 1] range.
func (m *Manager) sparseScores(query string, lp *loadedProject) []float64 {
	n := len(lp.index.Chunks)
	scores := make([]float64, n)
	if lp.sparseIdx == nil {
		return scores
	}

	tokens := sparse.Tokenize(query)
	raw := lp.sparseIdx.Scores(tokens)

	max := 0.0
	for _, s := range raw {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		return scores
	}
	for i := range raw {
		if i >= n {
			break
		}
		scores[i] = raw[i] / max
	}
	return scores
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
