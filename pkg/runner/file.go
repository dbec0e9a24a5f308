package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/mensylisir/pexm/pkg/connector"
)

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// Exists reports whether path exists on the host.
func (r *defaultRunner) Exists(ctx context.Context, conn connector.Connector, path string) (bool, error) {
	return r.Check(ctx, conn, fmt.Sprintf("test -e %s", shellQuote(path)), false)
}

// WriteFile writes content to destPath with the ownership and mode in opts.
func (r *defaultRunner) WriteFile(ctx context.Context, conn connector.Connector, content []byte, destPath string, opts *connector.FileTransferOptions) error {
	if conn == nil {
		return fmt.Errorf("connector cannot be nil")
	}
	return conn.CopyContent(ctx, content, destPath, opts)
}

// Upload streams a local file to destPath.
func (r *defaultRunner) Upload(ctx context.Context, conn connector.Connector, localPath, destPath string, opts *connector.FileTransferOptions) error {
	if conn == nil {
		return fmt.Errorf("connector cannot be nil")
	}
	return conn.Upload(ctx, localPath, destPath, opts)
}

// Chown changes ownership of path, descending into it when recursive is set.
// Always runs with sudo.
func (r *defaultRunner) Chown(ctx context.Context, conn connector.Connector, path, owner, group string, recursive bool) error {
	if owner == "" && group == "" {
		return fmt.Errorf("owner and group cannot both be empty for Chown")
	}
	spec := owner
	if group != "" {
		spec = owner + ":" + group
	}
	flag := ""
	if recursive {
		flag = "-R "
	}
	cmd := fmt.Sprintf("chown %s%s %s", flag, spec, shellQuote(path))
	if _, stderr, err := r.RunWithOptions(ctx, conn, cmd, &connector.ExecOptions{Sudo: true}); err != nil {
		return fmt.Errorf("failed to chown %s: %w (stderr: %s)", path, err, string(stderr))
	}
	return nil
}

// Remove deletes a file or directory, like 'rm -rf'.
func (r *defaultRunner) Remove(ctx context.Context, conn connector.Connector, path string, sudo bool) error {
	if _, stderr, err := r.RunWithOptions(ctx, conn, fmt.Sprintf("rm -rf %s", shellQuote(path)), &connector.ExecOptions{Sudo: sudo}); err != nil {
		return fmt.Errorf("failed to remove %s: %w (stderr: %s)", path, err, string(stderr))
	}
	return nil
}

var _ Runner = (*defaultRunner)(nil)
