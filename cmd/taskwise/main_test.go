package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskwise.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9000\"\nsummarizer:\n  api_key: sk-secret\n"), 0o600))

	out, err := run(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `port: "9000"`)
	assert.NotContains(t, out, "sk-secret")
}

func TestConfigCommand_MissingFile(t *testing.T) {
	_, err := run(t, "config", "-c", filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestSweepCommand_InMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskwise.yml")
	require.NoError(t, os.WriteFile(path, []byte("repository:\n  type: inmemory\n"), 0o600))

	out, err := run(t, "sweep", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "archived 0 task(s)")
}

func TestMigrateCommand_InMemoryIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskwise.yml")
	require.NoError(t, os.WriteFile(path, []byte("repository:\n  type: inmemory\n"), 0o600))

	_, err := run(t, "migrate", "up", "--config", path)
	assert.NoError(t, err)
}
