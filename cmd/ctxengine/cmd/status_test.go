package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxengine/ctxengine/internal/model"
)

func TestStatusCmd_ReportsNotIndexed(t *testing.T) {
	isolateEnv(t)
	dir := writeProject(t, map[string]string{"a.txt": "hello"})

	cmd := newStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{dir, "--json"})

	require.NoError(t, cmd.Execute())

	var status model.ProjectStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &status))
	assert.False(t, status.Indexed)
}

func TestStatusCmd_ReportsIndexedAfterIndexing(t *testing.T) {
	isolateEnv(t)
	dir := writeProject(t, map[string]string{"a.go": "package a\n"})

	idx := newIndexCmd()
	idx.SetOut(new(bytes.Buffer))
	idx.SetErr(new(bytes.Buffer))
	idx.SetArgs([]string{dir})
	require.NoError(t, idx.Execute())

	status := newStatusCmd()
	buf := new(bytes.Buffer)
	status.SetOut(buf)
	status.SetErr(buf)
	status.SetArgs([]string{dir, "--json"})
	require.NoError(t, status.Execute())

	var got model.ProjectStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.Indexed)
	assert.Equal(t, 1, got.TotalFiles)
}

func TestStatusCmd_PlainRenderMentionsWatcher(t *testing.T) {
	isolateEnv(t)
	dir := writeProject(t, map[string]string{"a.txt": "hello"})

	cmd := newStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Watcher:")
}
