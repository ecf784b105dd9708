package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScanTarget(t *testing.T) {
	target, err := resolveScanTarget(nil)
	require.NoError(t, err)
	assert.Equal(t, scanTarget{LocalPath: "."}, target)

	target, err = resolveScanTarget([]string{"alice@10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, scanTarget{Remote: true, SSHDestination: "alice@10.0.0.5", RemotePath: "."}, target)

	target, err = resolveScanTarget([]string{"alice@[::1]", "/var/log"})
	require.NoError(t, err)
	assert.Equal(t, "/var/log", target.RemotePath)

	_, err = resolveScanTarget([]string{"alice@example.com:2222"})
	assert.ErrorContains(t, err, "--ssh-port")

	_, err = resolveScanTarget([]string{"some/dir", "extra"})
	assert.Error(t, err)
}

func TestResolveScanTargetExistingLocalPathWins(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	require.NoError(t, os.Mkdir("alice@server", 0o755))

	target, err := resolveScanTarget([]string{"alice@server"})
	require.NoError(t, err)
	assert.False(t, target.Remote)
	assert.Equal(t, "alice@server", target.LocalPath)
}

func TestLocalDir(t *testing.T) {
	root := t.TempDir()
	got, err := localDir(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	file := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = localDir(file)
	assert.ErrorContains(t, err, "not a directory")

	_, err = localDir(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "dirpie dev\n", out)
}

func TestOncePrintsSettledTable(t *testing.T) {
	root := fixture(t)

	out, err := execute(t, "--once", "--log-level", "error", root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], root)
	assert.Contains(t, lines[1], "4.00 KiB")
	assert.Contains(t, lines[1], "sub/")
	assert.Contains(t, lines[2], "100 B")
	assert.Contains(t, lines[2], "a.txt")
	assert.Contains(t, lines[3], "total ~ 4.10 KiB in 2 items")
	assert.Contains(t, lines[3], "done")
}

func TestExportWritesSettledView(t *testing.T) {
	root := fixture(t)
	path := filepath.Join(t.TempDir(), "scan.json")

	out, err := execute(t, "--export", path, "--log-level", "error", root)
	require.NoError(t, err)
	assert.Equal(t, "Exported to "+path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc, 4)

	var header map[string]any
	require.NoError(t, json.Unmarshal(doc[2], &header))
	assert.Equal(t, "dirpie", header["progname"])
	assert.Equal(t, "settled", header["state"])
	assert.Contains(t, string(doc[3]), `"name":"sub"`)
}

func TestOnceConflictsWithStdoutExport(t *testing.T) {
	_, err := execute(t, "--once", "--export", "-", t.TempDir())
	assert.ErrorContains(t, err, "stdout")
}

func TestInvalidEnvironmentConfig(t *testing.T) {
	t.Setenv("DIRPIE_WORKERS", "0")
	_, err := execute(t, "--once", t.TempDir())
	assert.ErrorContains(t, err, "workers must be at least 1")
}

func TestFlagOverridesConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("workers: 0\nlog:\n  level: error\n"), 0o644))

	_, err := execute(t, "--config", cfgFile, "--once", t.TempDir())
	assert.ErrorContains(t, err, "workers")

	_, err = execute(t, "--config", cfgFile, "--workers", "3", "--once", t.TempDir())
	assert.NoError(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--once", t.TempDir())
	assert.ErrorContains(t, err, "failed to read config")
}

func TestMissingDirectory(t *testing.T) {
	_, err := execute(t, "--once", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// execute runs the root command in-process with an isolated config home.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fixture creates root/a.txt (100 B) and root/sub/b.bin (4096 B).
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), bytes.Repeat([]byte("a"), 100), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.bin"), bytes.Repeat([]byte("b"), 4096), 0o644))
	return root
}
