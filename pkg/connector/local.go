package connector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// LocalConnector runs commands on the machine pexm itself runs on.
type LocalConnector struct {
	connCfg  ConnectionCfg
	cachedOS *OS
}

func (l *LocalConnector) Connect(ctx context.Context, cfg ConnectionCfg) error {
	l.connCfg = cfg
	return nil
}

func (l *LocalConnector) IsConnected() bool {
	return true
}

func (l *LocalConnector) Close() error {
	return nil
}

func (l *LocalConnector) Exec(ctx context.Context, cmd string, options *ExecOptions) (stdout, stderr []byte, err error) {
	opts := ExecOptions{}
	if options != nil {
		opts = *options
	}

	for i := 0; i <= opts.Retries; i++ {
		runCtx, cancel := ctx, context.CancelFunc(func() {})
		if opts.Timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}

		var c *exec.Cmd
		if opts.Sudo {
			if l.connCfg.Password != "" {
				c = exec.CommandContext(runCtx, "sudo", "-S", "-p", "", "-E", "--", "/bin/sh", "-c", cmd)
			} else {
				c = exec.CommandContext(runCtx, "sudo", "-E", "--", "/bin/sh", "-c", cmd)
			}
		} else {
			c = exec.CommandContext(runCtx, "/bin/sh", "-c", cmd)
		}
		if len(opts.Env) > 0 {
			c.Env = append(os.Environ(), opts.Env...)
		}
		if in := commandStdin(opts, l.connCfg.Password); in != nil {
			c.Stdin = in
		}

		var stdoutBuf, stderrBuf bytes.Buffer
		if opts.Stream != nil {
			c.Stdout = io.MultiWriter(&stdoutBuf, opts.Stream)
			c.Stderr = io.MultiWriter(&stderrBuf, opts.Stream)
		} else {
			c.Stdout = &stdoutBuf
			c.Stderr = &stderrBuf
		}

		err = c.Run()
		cancel()
		stdout, stderr = stdoutBuf.Bytes(), stderrBuf.Bytes()
		if err == nil {
			return stdout, stderr, nil
		}
		if ctx.Err() != nil || i == opts.Retries {
			break
		}
		if opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.RetryDelay):
			}
		}
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return stdout, stderr, &CommandError{Cmd: cmd, ExitCode: exitCode, Stdout: string(stdout), Stderr: string(stderr), Underlying: err}
}

func (l *LocalConnector) CopyContent(ctx context.Context, content []byte, destPath string, options *FileTransferOptions) error {
	opts := FileTransferOptions{}
	if options != nil {
		opts = *options
	}
	if opts.Sudo {
		tmp, err := os.CreateTemp("", "pexm-*-"+filepath.Base(destPath))
		if err != nil {
			return fmt.Errorf("failed to create temporary file: %w", err)
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)
		if _, err := tmp.Write(content); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write temporary file %s: %w", tmpPath, err)
		}
		tmp.Close()

		script := fmt.Sprintf("mkdir -p %s && cp %s %s", shellEscape(filepath.Dir(destPath)), shellEscape(tmpPath), shellEscape(destPath))
		if opts.Permissions != "" {
			script += fmt.Sprintf(" && chmod %s %s", opts.Permissions, shellEscape(destPath))
		}
		if owner := ownerSpec(opts); owner != "" {
			script += fmt.Sprintf(" && chown %s %s", shellEscape(owner), shellEscape(destPath))
		}
		if _, stderr, err := l.Exec(ctx, script, &ExecOptions{Sudo: true}); err != nil {
			return fmt.Errorf("failed to place %s with sudo: %s: %w", destPath, stderr, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", destPath, err)
	}
	perm := os.FileMode(0644)
	if opts.Permissions != "" {
		mode, err := strconv.ParseUint(opts.Permissions, 8, 32)
		if err != nil {
			return fmt.Errorf("invalid permissions format '%s': %w", opts.Permissions, err)
		}
		perm = os.FileMode(mode)
	}
	if err := os.WriteFile(destPath, content, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	// WriteFile honours umask, chmod does not
	if err := os.Chmod(destPath, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", destPath, err)
	}
	if owner := ownerSpec(opts); owner != "" {
		if _, stderr, err := l.Exec(ctx, fmt.Sprintf("chown %s %s", shellEscape(owner), shellEscape(destPath)), nil); err != nil {
			return fmt.Errorf("failed to set ownership on %s: %s: %w", destPath, stderr, err)
		}
	}
	return nil
}

func (l *LocalConnector) Upload(ctx context.Context, localPath, remotePath string, options *FileTransferOptions) error {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read local file %s: %w", localPath, err)
	}
	return l.CopyContent(ctx, content, remotePath, options)
}

func (l *LocalConnector) GetOS(ctx context.Context) (*OS, error) {
	if l.cachedOS != nil {
		return l.cachedOS, nil
	}
	osInfo, err := detectOS(ctx, l)
	if err != nil {
		return nil, err
	}
	l.cachedOS = osInfo
	return osInfo, nil
}

func ownerSpec(opts FileTransferOptions) string {
	if opts.Owner == "" {
		return ""
	}
	if opts.Group != "" {
		return opts.Owner + ":" + opts.Group
	}
	return opts.Owner
}

var _ Connector = (*LocalConnector)(nil)
