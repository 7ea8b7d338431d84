package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CTXENGINE_INDEX_PATH", t.TempDir())
}

func writeProject(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestIndexCmd_BuildsIndexNonInteractively(t *testing.T) {
	isolateEnv(t)
	dir := writeProject(t, map[string]string{"a.go": "package a\n\nfunc F() {}\n"})

	cmd := newIndexCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
}

func TestIndexCmd_RejectsTooManyArgs(t *testing.T) {
	isolateEnv(t)

	cmd := newIndexCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"one", "two"})

	assert.Error(t, cmd.Execute())
}
