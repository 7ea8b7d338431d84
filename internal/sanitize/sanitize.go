// Package sanitize strips internal filesystem and runtime detail out
// of error messages before they reach a tool caller.
package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
)

// MaxMessageLen is the length an error message is truncated to after
// every other pass has run.
const MaxMessageLen = 500

const truncatedMarker = "...[truncated]"

var (
	// unixAbsPathPattern matches absolute Unix paths and UNC paths;
	// the whole match is replaced by its basename.
	unixAbsPathPattern = regexp.MustCompile(`(?:/[\w.\-]+)+/[\w.\-]+`)
	uncPathPattern     = regexp.MustCompile(`\\\\[\w.\-]+(?:\\[\w.\-]+)+`)

	// traversalPrefixPattern strips leading "../" runs, keeping the
	// rest of the path intact.
	traversalPrefixPattern = regexp.MustCompile(`(?:\.\./)+`)

	// traceLinePattern matches Python/Go-style ", line 123" suffixes.
	traceLinePattern = regexp.MustCompile(`,\s*line\s+\d+`)

	// hexAddressPattern matches 0x-prefixed hex memory addresses of at
	// least four hex digits, such as 0x14000812340, including inside
	// parentheses, e.g. (0xc0001a4000).
	hexAddressPattern = regexp.MustCompile(`\b0x[0-9a-fA-F]{4,}\b`)

	// dottedPathPattern matches dotted identifiers of depth 3 or more,
	// e.g. package.module.submodule.Func, which leak internal layout.
	dottedPathPattern = regexp.MustCompile(`\b[A-Za-z_][\w]*(?:\.[A-Za-z_][\w]*){2,}\b`)

	// stackFramePattern matches Python-style stack frame markers.
	stackFramePattern = regexp.MustCompile(`File\s+"[^"]*"(?:,\s*line\s+\d+)?(?:,\s*in\s+\w+)?`)
)

// Message runs every pass over msg in a fixed order and truncates the
// result to MaxMessageLen.
func Message(msg string) string {
	msg = stackFramePattern.ReplaceAllString(msg, "<source>")
	msg = uncPathPattern.ReplaceAllStringFunc(msg, basenameOf)
	msg = unixAbsPathPattern.ReplaceAllStringFunc(msg, basenameOf)
	msg = traversalPrefixPattern.ReplaceAllString(msg, "")
	msg = traceLinePattern.ReplaceAllString(msg, "")
	msg = hexAddressPattern.ReplaceAllString(msg, "<addr>")
	msg = dottedPathPattern.ReplaceAllString(msg, "<path>")
	msg = strings.TrimSpace(msg)
	return truncate(msg)
}

// Error wraps Message for direct use on an error's message. Returns ""
// for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return Message(err.Error())
}

func basenameOf(match string) string {
	sep := "/"
	if strings.Contains(match, `\`) {
		sep = `\`
	}
	parts := strings.Split(match, sep)
	base := parts[len(parts)-1]
	if base == "" && len(parts) > 1 {
		base = parts[len(parts)-2]
	}
	return filepath.Base(base)
}

func truncate(s string) string {
	if len(s) <= MaxMessageLen {
		return s
	}
	keep := MaxMessageLen - len(truncatedMarker)
	if keep < 0 {
		keep = 0
	}
	return s[:keep] + truncatedMarker
}
