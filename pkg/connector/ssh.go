package connector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/mensylisir/pexm/pkg/logger"
)

type SSHConnector struct {
	client     *ssh.Client
	sftpClient *sftp.Client
	connCfg    ConnectionCfg
	cachedOS   *OS
	pool       *ConnectionPool
	isFromPool bool
}

func NewSSHConnector(pool *ConnectionPool) *SSHConnector {
	return &SSHConnector{pool: pool}
}

func (s *SSHConnector) Connect(ctx context.Context, cfg ConnectionCfg) error {
	s.connCfg = cfg
	if s.pool != nil {
		client, err := s.pool.Get(ctx, cfg)
		if err != nil {
			return err
		}
		s.client = client
		s.isFromPool = true
		return nil
	}

	client, err := currentDialer(ctx, cfg, cfg.Timeout)
	if err != nil {
		return err
	}
	s.client = client
	s.isFromPool = false
	return nil
}

func (s *SSHConnector) IsConnected() bool {
	if s.client == nil {
		return false
	}
	_, _, err := s.client.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

func (s *SSHConnector) Close() error {
	var firstErr error
	if s.sftpClient != nil {
		if err := s.sftpClient.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close SFTP client for %s: %w", s.connCfg.Host, err)
		}
		s.sftpClient = nil
	}
	// pooled clients are owned by the pool
	if s.client != nil && !s.isFromPool {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.client = nil
	return firstErr
}

func (s *SSHConnector) Exec(ctx context.Context, cmd string, options *ExecOptions) (stdout, stderr []byte, err error) {
	if s.client == nil {
		return nil, nil, &ConnectionError{Host: s.connCfg.Host, Err: fmt.Errorf("not connected")}
	}
	opts := ExecOptions{}
	if options != nil {
		opts = *options
	}

	runOnce := func(runCtx context.Context) ([]byte, []byte, error) {
		session, err := s.client.NewSession()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session: %w", err)
		}
		defer session.Close()

		for _, envVar := range opts.Env {
			if parts := strings.SplitN(envVar, "=", 2); len(parts) == 2 {
				_ = session.Setenv(parts[0], parts[1])
			}
		}

		finalCmd := cmd
		if opts.Sudo {
			if s.connCfg.Password != "" {
				finalCmd = "sudo -S -p '' -E -- /bin/sh -c " + shellEscape(cmd)
			} else {
				finalCmd = "sudo -E -- /bin/sh -c " + shellEscape(cmd)
			}
		}

		if in := commandStdin(opts, s.connCfg.Password); in != nil {
			session.Stdin = in
		}

		var stdoutBuf, stderrBuf bytes.Buffer
		if opts.Stream != nil {
			session.Stdout = io.MultiWriter(&stdoutBuf, opts.Stream)
			session.Stderr = io.MultiWriter(&stderrBuf, opts.Stream)
		} else {
			session.Stdout = &stdoutBuf
			session.Stderr = &stderrBuf
		}

		if err := session.Start(finalCmd); err != nil {
			return nil, nil, fmt.Errorf("failed to start command '%s': %w", cmd, err)
		}
		doneCh := make(chan error, 1)
		go func() { doneCh <- session.Wait() }()

		select {
		case <-runCtx.Done():
			_ = session.Signal(ssh.SIGKILL)
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), runCtx.Err()
		case err := <-doneCh:
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), err
		}
	}

	for i := 0; i <= opts.Retries; i++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if opts.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}
		stdout, stderr, err = runOnce(attemptCtx)
		cancel()
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
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitStatus()
	}
	return stdout, stderr, &CommandError{Cmd: cmd, ExitCode: exitCode, Stdout: string(stdout), Stderr: string(stderr), Underlying: err}
}

func (s *SSHConnector) ensureSftp() error {
	if s.sftpClient != nil {
		return nil
	}
	if s.client == nil {
		return &ConnectionError{Host: s.connCfg.Host, Err: fmt.Errorf("not connected, cannot initialize SFTP")}
	}
	c, err := sftp.NewClient(s.client)
	if err != nil {
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}
	s.sftpClient = c
	return nil
}

func (s *SSHConnector) CopyContent(ctx context.Context, content []byte, destPath string, options *FileTransferOptions) error {
	return s.writeFromReader(ctx, bytes.NewReader(content), destPath, options)
}

func (s *SSHConnector) Upload(ctx context.Context, localPath, remotePath string, options *FileTransferOptions) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer f.Close()
	return s.writeFromReader(ctx, f, remotePath, options)
}

func (s *SSHConnector) writeFromReader(ctx context.Context, content io.Reader, destPath string, options *FileTransferOptions) error {
	opts := FileTransferOptions{}
	if options != nil {
		opts = *options
	}
	if err := s.ensureSftp(); err != nil {
		return err
	}
	if !opts.Sudo {
		if err := s.writeViaSFTP(content, destPath, opts.Permissions); err != nil {
			return err
		}
		return s.applyOwnership(ctx, destPath, opts, false)
	}

	// upload to a private temp file, then move it into place as root
	tmpPath := filepath.Join("/tmp", fmt.Sprintf("pexm-%s-%s", uuid.NewString(), filepath.Base(destPath)))
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if _, _, err := s.Exec(cleanupCtx, "rm -f "+shellEscape(tmpPath), nil); err != nil {
			logger.Get().Warnf("failed to remove temporary file %s on host %s: %v", tmpPath, s.connCfg.Host, err)
		}
	}()
	if err := s.writeViaSFTP(content, tmpPath, "0600"); err != nil {
		return fmt.Errorf("failed to upload to temporary path %s for sudo write: %w", tmpPath, err)
	}
	if dir := filepath.Dir(destPath); dir != "/" && dir != "." {
		if _, stderr, err := s.Exec(ctx, "mkdir -p "+shellEscape(dir), &ExecOptions{Sudo: true}); err != nil {
			return fmt.Errorf("failed to create destination directory %s with sudo: %s: %w", dir, stderr, err)
		}
	}
	if _, stderr, err := s.Exec(ctx, fmt.Sprintf("mv %s %s", shellEscape(tmpPath), shellEscape(destPath)), &ExecOptions{Sudo: true}); err != nil {
		return fmt.Errorf("failed to move file to %s with sudo: %s: %w", destPath, stderr, err)
	}
	if opts.Permissions != "" {
		if _, err := strconv.ParseUint(opts.Permissions, 8, 32); err != nil {
			return fmt.Errorf("invalid permissions format '%s': %w", opts.Permissions, err)
		}
		if _, stderr, err := s.Exec(ctx, fmt.Sprintf("chmod %s %s", opts.Permissions, shellEscape(destPath)), &ExecOptions{Sudo: true}); err != nil {
			return fmt.Errorf("failed to set permissions on %s with sudo: %s: %w", destPath, stderr, err)
		}
	}
	return s.applyOwnership(ctx, destPath, opts, true)
}

func (s *SSHConnector) applyOwnership(ctx context.Context, destPath string, opts FileTransferOptions, sudo bool) error {
	if opts.Owner == "" {
		return nil
	}
	owner := opts.Owner
	if opts.Group != "" {
		owner = opts.Owner + ":" + opts.Group
	}
	if _, stderr, err := s.Exec(ctx, fmt.Sprintf("chown %s %s", shellEscape(owner), shellEscape(destPath)), &ExecOptions{Sudo: sudo}); err != nil {
		return fmt.Errorf("failed to set ownership on %s: %s: %w", destPath, stderr, err)
	}
	return nil
}

func (s *SSHConnector) writeViaSFTP(content io.Reader, destPath, permissions string) error {
	if dir := filepath.Dir(destPath); dir != "/" && dir != "." {
		if err := s.sftpClient.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create parent directory %s via sftp: %w", dir, err)
		}
	}
	file, err := s.sftpClient.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s via sftp: %w", destPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return fmt.Errorf("failed to write content to remote file %s via sftp: %w", destPath, err)
	}
	if permissions != "" {
		mode, err := strconv.ParseUint(permissions, 8, 32)
		if err != nil {
			return fmt.Errorf("invalid permissions format '%s': %w", permissions, err)
		}
		if err := s.sftpClient.Chmod(destPath, os.FileMode(mode)); err != nil {
			return fmt.Errorf("failed to chmod remote file %s: %w", destPath, err)
		}
	}
	return nil
}

func (s *SSHConnector) GetOS(ctx context.Context) (*OS, error) {
	if s.cachedOS != nil {
		return s.cachedOS, nil
	}
	osInfo, err := detectOS(ctx, s)
	if err != nil {
		return nil, err
	}
	s.cachedOS = osInfo
	return osInfo, nil
}

func dialSSH(ctx context.Context, cfg ConnectionCfg, timeout time.Duration) (*ssh.Client, error) {
	auth, err := buildAuthMethods(cfg)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	hostKeyCallback := cfg.HostKeyCallback
	if hostKeyCallback == nil {
		logger.Get().Warnf("HostKeyCallback is not set for host %s, host key verification is disabled", cfg.Host)
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}
	return ssh.NewClient(c, chans, reqs), nil
}

func buildAuthMethods(cfg ConnectionCfg) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	key := cfg.PrivateKey
	if len(key) == 0 && cfg.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file %s: %w", cfg.PrivateKeyPath, err)
		}
		key = data
	}
	if len(key) > 0 {
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH authentication method provided (password or private key required for host %s)", cfg.Host)
	}
	return methods, nil
}

var _ Connector = (*SSHConnector)(nil)
