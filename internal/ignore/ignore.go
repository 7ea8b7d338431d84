// Package ignore implements gitignore-syntax pattern matching, used to
// decide which files under a project root are eligible for indexing.
package ignore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// MaxIgnoreFileBytes caps how much of a .contextignore/.gitignore file is
// read; larger files are truncated rather than rejected.
const MaxIgnoreFileBytes = 1 << 20 // 1 MiB

// DefaultPatterns are applied to every project before any user-supplied
// ignore file, and include a credential-file blacklist so that secrets
// are never indexed even when a project's own ignore file misses them.
var DefaultPatterns = []string{
	".git/",
	".svn/",
	".hg/",
	"__pycache__/",
	"*.pyc",
	"node_modules/",
	"vendor/",
	".venv/",
	"venv/",
	"dist/",
	"build/",
	".ctxengine/",
	".idea/",
	".vscode/",
	"*.log",
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	".netrc",
	"credentials.json",
	"service_account.json",
	"id_rsa*",
	"id_ed25519*",
}

// Matcher holds compiled gitignore patterns and provides thread-safe matching.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
	anchored bool
}

// New returns a Matcher seeded with DefaultPatterns.
func New() *Matcher {
	m := &Matcher{}
	for _, p := range DefaultPatterns {
		m.AddPattern(p)
	}
	return m
}

// AddPattern compiles and appends a single gitignore-syntax pattern.
func (m *Matcher) AddPattern(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || (strings.HasPrefix(pattern, "#") && !strings.HasPrefix(pattern, `\#`)) {
		return
	}

	r := rule{}

	if strings.HasPrefix(pattern, `\#`) || strings.HasPrefix(pattern, `\!`) {
		pattern = strings.TrimPrefix(pattern, `\`)
	} else if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = strings.TrimPrefix(pattern, "!")
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") {
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + patternToRegex(pattern) + "$")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromReader reads newline-delimited patterns, stopping after
// MaxIgnoreFileBytes bytes have been consumed.
func (m *Matcher) AddFromReader(r *os.File) error {
	limited := &limitedScanner{f: r, limit: MaxIgnoreFileBytes}
	scanner := bufio.NewScanner(limited)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// LoadIgnoreFile loads the first of .contextignore / .gitignore found
// directly under root, if any. A missing file is not an error.
func (m *Matcher) LoadIgnoreFile(root string) error {
	for _, name := range []string{".contextignore", ".gitignore"} {
		path := filepath.Join(root, name)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("open %s: %w", name, err)
		}
		err = m.AddFromReader(f)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		return closeErr
	}
	return nil
}

// Match reports whether relPath (slash-separated, relative to the
// project root) should be excluded from indexing. The last matching
// rule wins, so a later "!pattern" can re-include an earlier exclusion.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if matchRule(relPath, isDir, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

func matchRule(path string, isDir bool, r rule) bool {
	parts := strings.Split(path, "/")
	basename := parts[len(parts)-1]

	if r.anchored {
		if r.regex.MatchString(path) {
			if r.dirOnly {
				return isDir
			}
			return true
		}
		if r.dirOnly {
			for i := range parts[:len(parts)-1] {
				if r.regex.MatchString(strings.Join(parts[:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	if r.regex.MatchString(basename) || r.regex.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// patternToRegex converts a single gitignore glob into an anchored regex body.
func patternToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				if i == 0 || pattern[i-1] == '/' {
					b.WriteString(".*")
					i += 2
					continue
				}
			}
			b.WriteString("[^/]*")
			i++
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				b.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '\\':
			if i+1 < len(pattern) {
				b.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			b.WriteString(string(c))
			i++
		}
	}
	return b.String()
}

// limitedScanner wraps a file so bufio.Scanner never reads past limit bytes.
type limitedScanner struct {
	f     *os.File
	limit int64
	read  int64
}

func (l *limitedScanner) Read(p []byte) (int, error) {
	if l.read >= l.limit {
		return 0, io.EOF
	}
	if remaining := l.limit - l.read; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.f.Read(p)
	l.read += int64(n)
	return n, err
}
