package parse

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/ctxengine/ctxengine/internal/model"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
	".svg":  true,
}

// ImageParser indexes image metadata, not visual content; dimension and
// format detection is best-effort and only available for the formats
// the standard library's image package decodes (png, jpeg, gif). Other
// supported extensions still get a filename/size chunk.
type ImageParser struct{}

func (p *ImageParser) Handles(relPath string) bool {
	return imageExtensions[ext(relPath)]
}

func (p *ImageParser) Parse(absPath, relPath string) ([]model.Chunk, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Image: %s", relPath))
	lines = append(lines, fmt.Sprintf("Size: %d bytes", info.Size()))
	lines = append(lines, fmt.Sprintf("Path: %s", relPath))

	if cfg, format, ok := decodeConfig(absPath); ok {
		lines = append(lines, fmt.Sprintf("Dimensions: %dx%d", cfg.Width, cfg.Height))
		lines = append(lines, fmt.Sprintf("Format: %s", format))
		lines = append(lines, fmt.Sprintf("Mode: %s", cfg.ColorModel))
	}

	return []model.Chunk{{
		Content:     strings.Join(lines, "\n"),
		SourcePath:  relPath,
		StartLine:   0,
		EndLine:     0,
		ContentType: model.ContentTypeImage,
		Heading:     fmt.Sprintf("Image metadata: %s", relPath),
		EmbeddingID: -1,
	}}, nil
}

func decodeConfig(absPath string) (image.Config, string, bool) {
	f, err := os.Open(absPath)
	if err != nil {
		return image.Config{}, "", false
	}
	defer func() { _ = f.Close() }()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, "", false
	}
	return cfg, format, true
}
