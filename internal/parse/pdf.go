package parse

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/ctxengine/ctxengine/internal/model"
)

// MaxPDFPages caps how many pages a single PDF contributes chunks for;
// pages beyond it are dropped rather than the whole file being rejected.
const MaxPDFPages = 500

// PDFParser extracts one chunk per page, using the page number as both
// StartLine and EndLine since PDFs have no line-oriented structure.
type PDFParser struct{}

func (p *PDFParser) Handles(relPath string) bool {
	return ext(relPath) == ".pdf"
}

func (p *PDFParser) Parse(absPath, relPath string) ([]model.Chunk, error) {
	f, r, err := pdf.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	total := r.NumPage()
	if total > MaxPDFPages {
		total = MaxPDFPages
	}

	chunks := make([]model.Chunk, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		chunks = append(chunks, model.Chunk{
			Content:     text,
			SourcePath:  relPath,
			StartLine:   i,
			EndLine:     i,
			ContentType: model.ContentTypeDocument,
			Heading:     fmt.Sprintf("Page %d", i),
			EmbeddingID: -1,
		})
	}
	if len(chunks) == 0 {
		chunks = append(chunks, model.Chunk{
			Content:     "",
			SourcePath:  relPath,
			StartLine:   1,
			EndLine:     1,
			ContentType: model.ContentTypeDocument,
			Heading:     "Page 1",
			EmbeddingID: -1,
		})
	}
	return chunks, nil
}
