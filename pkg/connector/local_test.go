package connector

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalConnector_Exec(t *testing.T) {
	l := &LocalConnector{}
	require.NoError(t, l.Connect(context.Background(), ConnectionCfg{Host: "localhost"}))

	stdout, _, err := l.Exec(context.Background(), "echo hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(stdout))
}

func TestLocalConnector_ExecFailureCarriesExitCode(t *testing.T) {
	l := &LocalConnector{}
	_, _, err := l.Exec(context.Background(), "echo boom >&2; exit 3", nil)
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "boom\n", cmdErr.Stderr)
}

func TestLocalConnector_ExecEnv(t *testing.T) {
	l := &LocalConnector{}
	stdout, _, err := l.Exec(context.Background(), "echo $PEXM_TEST_VALUE", &ExecOptions{Env: []string{"PEXM_TEST_VALUE=42"}})
	require.NoError(t, err)
	assert.Equal(t, "42\n", string(stdout))
}

func TestLocalConnector_ExecStdin(t *testing.T) {
	l := &LocalConnector{}
	stdout, _, err := l.Exec(context.Background(), "cat", &ExecOptions{Stdin: []byte(`{"password":"s3cret"}`)})
	require.NoError(t, err)
	assert.Equal(t, `{"password":"s3cret"}`, string(stdout))

	// every retry reads the whole payload again
	_, _, err = l.Exec(context.Background(), "cat; exit 4", &ExecOptions{Stdin: []byte("body"), Retries: 1})
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "body", cmdErr.Stdout)
	assert.NotContains(t, err.Error(), "body")
}

func TestCommandStdin(t *testing.T) {
	assert.Nil(t, commandStdin(ExecOptions{}, "pw"))
	assert.Nil(t, commandStdin(ExecOptions{Sudo: true}, ""))

	read := func(r io.Reader) string {
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, "pw\n", read(commandStdin(ExecOptions{Sudo: true}, "pw")))
	assert.Equal(t, "payload", read(commandStdin(ExecOptions{Stdin: []byte("payload")}, "pw")))
	assert.Equal(t, "pw\npayload", read(commandStdin(ExecOptions{Sudo: true, Stdin: []byte("payload")}, "pw")))
}

func TestLocalConnector_CopyContent(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "nested", "pe.conf")

	l := &LocalConnector{}
	err := l.CopyContent(context.Background(), []byte("{}"), dest, &FileTransferOptions{Permissions: "0600"})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLocalConnector_CopyContentBadPermissions(t *testing.T) {
	l := &LocalConnector{}
	err := l.CopyContent(context.Background(), []byte("x"), filepath.Join(t.TempDir(), "f"), &FileTransferOptions{Permissions: "rwx"})
	assert.Error(t, err)
}

func TestLocalConnector_Upload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	l := &LocalConnector{}
	dest := filepath.Join(dir, "out", "dest")
	require.NoError(t, l.Upload(context.Background(), src, dest, nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	assert.Error(t, l.Upload(context.Background(), filepath.Join(dir, "missing"), dest, nil))
}

func TestParseOSRelease(t *testing.T) {
	content := `NAME="CentOS Linux"
VERSION="7 (Core)"
ID="centos"
VERSION_ID="7"
PRETTY_NAME="CentOS Linux 7 (Core)"
`
	osInfo := ParseOSRelease(content)
	assert.Equal(t, "centos", osInfo.ID)
	assert.Equal(t, "7", osInfo.VersionID)
	assert.Equal(t, "CentOS Linux 7 (Core)", osInfo.PrettyName)
}

func TestShellEscape(t *testing.T) {
	assert.Equal(t, "'plain'", shellEscape("plain"))
	assert.Equal(t, `'it'\''s'`, shellEscape("it's"))
}

func TestIsLocalHost(t *testing.T) {
	assert.True(t, IsLocalHost("localhost"))
	assert.True(t, IsLocalHost("127.0.0.1"))
	assert.False(t, IsLocalHost("master.example.com"))
}
