package parse

import (
	"bufio"
	"os"
	"strings"

	"github.com/ctxengine/ctxengine/internal/model"
)

// codeLanguages maps a recognized source extension to its language label.
var codeLanguages = map[string]string{
	".go":     "go",
	".py":     "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".java":   "java",
	".rb":     "ruby",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".hpp":    "cpp",
	".cs":     "csharp",
	".rs":     "rust",
	".php":    "php",
	".swift":  "swift",
	".kt":     "kotlin",
	".scala":  "scala",
	".sh":     "shell",
	".bash":   "shell",
	".sql":    "sql",
}

// codeChunkTargetLines is the soft target chunk size; a chunk is closed
// at the next blank line or boundary keyword once it reaches this size,
// never mid-statement on a hard line count.
const codeChunkTargetLines = 50

// codeBoundaryPrefixes are line prefixes (after trimming leading
// whitespace) that start a new top-level construct across the languages
// in codeLanguages; used as a weak, language-agnostic chunk boundary
// rather than a per-language grammar.
var codeBoundaryPrefixes = []string{"class ", "def ", "function ", "export "}

// CodeParser chunks source files by line count, closing each chunk at a
// blank line or a recognized boundary keyword once it has reached
// codeChunkTargetLines. It deliberately does not parse an AST: a single
// line-oriented heuristic is applied uniformly across every supported
// language instead of maintaining one grammar per language.
type CodeParser struct{}

func (p *CodeParser) Handles(relPath string) bool {
	_, ok := codeLanguages[ext(relPath)]
	return ok
}

func (p *CodeParser) Parse(absPath, relPath string) ([]model.Chunk, error) {
	lines, err := readLines(absPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(strings.Join(lines, "\n")) == "" {
		return nil, nil
	}
	lang := codeLanguages[ext(relPath)]

	var chunks []model.Chunk
	start := 0
	for start < len(lines) {
		end := start
		for end < len(lines) {
			reachedTarget := end-start+1 >= codeChunkTargetLines
			if reachedTarget && isCodeBoundary(lines[end]) {
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
				ContentType: model.ContentTypeCode,
				Language:    lang,
				EmbeddingID: -1,
			})
		}
		start = end + 1
	}
	return chunks, nil
}

func isCodeBoundary(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return true
	}
	for _, prefix := range codeBoundaryPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func readLines(absPath string) ([]string, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
