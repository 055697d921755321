package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := strings.Join([]string{
		"database:",
		"  path: " + filepath.Join(dir, "medbook.db"),
		"exports:",
		"  path: " + filepath.Join(dir, "exports"),
		"backup:",
		"  storage_path: " + filepath.Join(dir, "backups"),
		"logging:",
		"  level: error",
		"  output: stderr",
	}, "\n")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	t.Setenv("CONFIG_PATH", path)
	return path, dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func addArgs(configPath, name, clock string) []string {
	return []string{"--config", configPath, "bookings", "add",
		"--name", name, "--email", strings.ToLower(name) + "@example.com", "--phone", "5551234567",
		"--specialty", "Cardiology", "--date", "2030-05-01", "--time", clock}
}

func TestBookingsAddListExport(t *testing.T) {
	configPath, dir := writeConfig(t)

	out, err := execute(t, "", addArgs(configPath, "Dana", "10:00")...)
	require.NoError(t, err)
	assert.Contains(t, out, "booking 1 created for Dana")

	_, err = execute(t, "", addArgs(configPath, "Eve", "10:00")...)
	require.Error(t, err)

	out, err = execute(t, "", append(addArgs(configPath, "Eve", "10:00"), "--force")...)
	require.NoError(t, err)
	assert.Contains(t, out, "booking 2 created")

	out, err = execute(t, "", "--config", configPath, "bookings", "list", "--name", "dan")
	require.NoError(t, err)
	assert.Contains(t, out, "Dana")
	assert.NotContains(t, out, "Eve")

	out, err = execute(t, "", "--config", configPath, "bookings", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 bookings")
	files, err := os.ReadDir(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	target := filepath.Join(dir, "out.xlsx")
	_, err = execute(t, "", "--config", configPath, "bookings", "export", "-o", target)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestBookingsAddRequiresFlags(t *testing.T) {
	configPath, _ := writeConfig(t)
	_, err := execute(t, "", "--config", configPath, "bookings", "add", "--name", "X")
	assert.Error(t, err)
}

func TestChatREPL(t *testing.T) {
	configPath, _ := writeConfig(t)

	script := strings.Join([]string{
		"I want to book an appointment",
		"Frank",
		"/clear",
		"/quit",
	}, "\n")
	out, err := execute(t, script, "--config", configPath, "chat", "--session", "ops-1")
	require.NoError(t, err)

	assert.Contains(t, out, "session ops-1")
	assert.Contains(t, out, "chat cleared")
	assert.Contains(t, strings.ToLower(out), "email")
}

func TestBackup(t *testing.T) {
	configPath, dir := writeConfig(t)
	_, err := execute(t, "", addArgs(configPath, "Gina", "09:00")...)
	require.NoError(t, err)

	out, err := execute(t, "", "--config", configPath, "backup")
	require.NoError(t, err)
	assert.Contains(t, out, "backup written to")

	files, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
