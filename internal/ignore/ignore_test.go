package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPatternsExcludeCredentials(t *testing.T) {
	m := New()
	assert.True(t, m.Match(".env", false))
	assert.True(t, m.Match("secrets/id_rsa", false))
	assert.True(t, m.Match("node_modules/pkg/index.js", false))
	assert.True(t, m.Match("node_modules", true))
	assert.False(t, m.Match("main.go", false))
}

func TestNegationReIncludes(t *testing.T) {
	m := &Matcher{}
	m.AddPattern("*.log")
	m.AddPattern("!keep.log")
	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("keep.log", false))
}

func TestAnchoredPattern(t *testing.T) {
	m := &Matcher{}
	m.AddPattern("/build")
	assert.True(t, m.Match("build", true))
	assert.False(t, m.Match("sub/build", true))
}

func TestDoubleStarMatchesAnyDepth(t *testing.T) {
	m := &Matcher{}
	m.AddPattern("**/cache/*.tmp")
	assert.True(t, m.Match("a/b/cache/x.tmp", false))
}

func TestLoadIgnoreFilePrefersContextignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.gitonly\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".contextignore"), []byte("*.ctxonly\n"), 0o644))

	m := &Matcher{}
	require.NoError(t, m.LoadIgnoreFile(dir))
	assert.True(t, m.Match("x.ctxonly", false))
	assert.False(t, m.Match("x.gitonly", false))
}

func TestLoadIgnoreFileMissingIsNotError(t *testing.T) {
	m := &Matcher{}
	require.NoError(t, m.LoadIgnoreFile(t.TempDir()))
}

func TestLoadIgnoreFileTruncatesAtCap(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, ".contextignore"))
	require.NoError(t, err)
	for i := 0; i < 600_000; i++ {
		_, _ = f.WriteString("x\n")
	}
	_, err = f.WriteString("*.definitely_after_cap\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	m := &Matcher{}
	require.NoError(t, m.LoadIgnoreFile(dir))
	assert.False(t, m.Match("y.definitely_after_cap", false))
}
