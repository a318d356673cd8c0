package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello_world"},
		{"MyMigration_01", "MyMigration_01"},
		{"test/file\\name", "test_file_name"},
		{"!@#$%^", "migration"},
		{"", "migration"},
		{"123-abc", "123-abc"},
	}

	for _, tt := range tests {
		got := sanitizeName(tt.input)
		if got != tt.expected {
			t.Errorf("sanitizeName(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCommandSetup(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addCommonFlags(fs)

	// Just verify commands can be created without panic
	t.Run("CreateUp", func(_ *testing.T) { _ = cmdUp(fs) })
	t.Run("CreateDown", func(_ *testing.T) { _ = cmdDown(fs) })
	t.Run("CreateRedo", func(_ *testing.T) { _ = cmdRedo(fs) })
	t.Run("CreateStatus", func(_ *testing.T) { _ = cmdStatus(fs) })
	t.Run("CreateExecuted", func(_ *testing.T) { _ = cmdExecuted(fs) })
	t.Run("CreatePending", func(_ *testing.T) { _ = cmdPending(fs) })
	t.Run("CreateDBVersion", func(_ *testing.T) { _ = cmdDBVersion(fs) })
	t.Run("CreateCreate", func(_ *testing.T) { _ = cmdCreate(fs) })
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "create", "add users", "--path", dir)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Created "), out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasSuffix(entries[0].Name(), "_add_users.sql"))

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(content), "-- +migrate Up")
	require.Contains(t, string(content), "-- +migrate Down")

	goDir := t.TempDir()
	_, err = runCLI(t, "create", "backfill", "--path", goDir, "--kind", "go")
	require.NoError(t, err)

	entries, err = os.ReadDir(goDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err = os.ReadFile(filepath.Join(goDir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(content), "lib.Register(")
}

func TestCommandsAgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_accounts.sql"), []byte(`
-- +migrate Up
CREATE TABLE accounts (id INTEGER PRIMARY KEY);
-- +migrate Down
DROP TABLE accounts;
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2_orders.sql"), []byte(`
-- +migrate Up
CREATE TABLE orders (id INTEGER PRIMARY KEY);
-- +migrate Down
DROP TABLE orders;
`), 0o644))

	common := []string{
		"--driver", "sqlite",
		"--dsn", filepath.Join(t.TempDir(), "cli.db"),
		"--path", dir,
		"--log_level", "error",
	}
	run := func(args ...string) (string, error) {
		return runCLI(t, append(args, common...)...)
	}

	out, err := run("up", "1_accounts")
	require.NoError(t, err)
	require.Equal(t, "Applied 1_accounts\n", out)

	out, err = run("pending")
	require.NoError(t, err)
	require.Equal(t, "2_orders\n", out)

	_, err = run("up", "1_accounts")
	require.EqualError(t, err, "Migration is not pending: 1_accounts")

	_, err = run("up", "1_accounts", "--to", "2_orders")
	require.Error(t, err)

	out, err = run("up")
	require.NoError(t, err)
	require.Equal(t, "Applied 2_orders\n", out)

	out, err = run("dbversion")
	require.NoError(t, err)
	require.Equal(t, "2_orders\n", out)

	out, err = run("status")
	require.NoError(t, err)
	require.Contains(t, out, "APPLIED")
	require.Contains(t, out, "1_accounts")
	require.Contains(t, out, "2_orders")

	out, err = run("redo")
	require.NoError(t, err)
	require.Equal(t, "Redone 2_orders\n", out)

	out, err = run("down")
	require.NoError(t, err)
	require.Equal(t, "Reverted 2_orders\n", out)

	out, err = run("down", "2_orders")
	require.EqualError(t, err, "Migration was not executed: 2_orders")
	require.Empty(t, out)

	out, err = run("executed")
	require.NoError(t, err)
	require.Equal(t, "1_accounts\n", out)

	out, err = run("down", "--all")
	require.NoError(t, err)
	require.Equal(t, "Reverted 1_accounts\n", out)

	out, err = run("down", "--all")
	require.NoError(t, err)
	require.Empty(t, out)
}
