package parse

import (
	"strings"

	"github.com/ctxengine/ctxengine/internal/model"
)

var documentExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".rst":      true,
	".adoc":     true,
}

const plainTextChunkTargetLines = 30

// DocumentParser chunks markdown by heading and every other supported
// document extension by blank-line-delimited paragraphs of roughly
// plainTextChunkTargetLines lines.
type DocumentParser struct{}

func (p *DocumentParser) Handles(relPath string) bool {
	return documentExtensions[ext(relPath)]
}

func (p *DocumentParser) Parse(absPath, relPath string) ([]model.Chunk, error) {
	lines, err := readLines(absPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(strings.Join(lines, "\n")) == "" {
		return nil, nil
	}

	if e := ext(relPath); e == ".md" || e == ".markdown" {
		return parseMarkdown(lines, relPath), nil
	}
	return parsePlainText(lines, relPath), nil
}

func parseMarkdown(lines []string, relPath string) []model.Chunk {
	var chunks []model.Chunk
	heading := ""
	start := 0

	flush := func(end int) {
		if end < start {
			return
		}
		content := strings.Join(lines[start:end+1], "\n")
		if strings.TrimSpace(content) == "" {
			return
		}
		chunks = append(chunks, model.Chunk{
			Content:     content,
			SourcePath:  relPath,
			StartLine:   start + 1,
			EndLine:     end + 1,
			ContentType: model.ContentTypeDocument,
			Heading:     heading,
			EmbeddingID: -1,
		})
	}

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			if i > start || (i == start && heading != "") {
				flush(i - 1)
			}
			start = i
			heading = strings.TrimSpace(strings.TrimLeft(strings.TrimLeft(line, " \t"), "#"))
		}
	}
	flush(len(lines) - 1)
	return chunks
}

func parsePlainText(lines []string, relPath string) []model.Chunk {
	var chunks []model.Chunk
	start := 0
	for start < len(lines) {
		end := start
		for end < len(lines) {
			if end-start+1 >= plainTextChunkTargetLines && strings.TrimSpace(lines[end]) == "" {
				break
			}
			end++
		}
		if end >= len(lines) {
			end = len(lines) - 1
		}
		content := strings.Join(lines[start:end+1], "\n")
		if strings.TrimSpace(content) != "" {
			chunks = append(chunks, model.Chunk{
				Content:     content,
				SourcePath:  relPath,
				StartLine:   start + 1,
				EndLine:     end + 1,
				ContentType: model.ContentTypeDocument,
				EmbeddingID: -1,
			})
		}
		start = end + 1
	}
	return chunks
}
