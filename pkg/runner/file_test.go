package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/pexm/pkg/connector"
)

func TestChown(t *testing.T) {
	mock := NewMockConnector()
	r := New()

	require.NoError(t, r.Chown(context.Background(), mock, "/etc/puppetlabs/puppetserver/ssh", "pe-puppet", "pe-puppet", true))
	assert.Equal(t, "chown -R pe-puppet:pe-puppet '/etc/puppetlabs/puppetserver/ssh'", mock.ExecHistory[0])
	assert.True(t, mock.LastOptions.Sudo)

	assert.Error(t, r.Chown(context.Background(), mock, "/x", "", "", false))
}

func TestWriteFile_PassesOptions(t *testing.T) {
	mock := NewMockConnector()
	var gotPath string
	var gotOpts *connector.FileTransferOptions
	mock.CopyContentFunc = func(ctx context.Context, content []byte, dstPath string, options *connector.FileTransferOptions) error {
		gotPath, gotOpts = dstPath, options
		return nil
	}
	opts := &connector.FileTransferOptions{Permissions: "0400", Owner: "pe-puppet", Sudo: true}
	require.NoError(t, New().WriteFile(context.Background(), mock, []byte("key"), "/etc/key", opts))
	assert.Equal(t, "/etc/key", gotPath)
	assert.Same(t, opts, gotOpts)
}

func TestExists(t *testing.T) {
	mock := NewMockConnector()
	mock.ExecFunc = func(ctx context.Context, cmd string, options *connector.ExecOptions) ([]byte, []byte, error) {
		return nil, nil, &connector.CommandError{Cmd: cmd, ExitCode: 1}
	}
	ok, err := New().Exists(context.Background(), mock, "/nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
