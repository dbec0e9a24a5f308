package connector

import (
	"context"
	"time"

	"golang.org/x/crypto/ssh"
)

// OS represents operating system details of a host.
type OS struct {
	ID         string // e.g. "ubuntu", "rhel", "centos"
	VersionID  string // e.g. "20.04", "8.6"
	PrettyName string
	Arch       string // as reported by uname -m, e.g. "x86_64"
	Kernel     string
}

// ConnectionCfg holds everything needed to reach one host.
type ConnectionCfg struct {
	Host            string
	Port            int
	User            string
	Password        string
	PrivateKey      []byte
	PrivateKeyPath  string
	Timeout         time.Duration
	HostKeyCallback ssh.HostKeyCallback `json:"-" yaml:"-"`
}

// Connector runs commands on and copies content to a single host.
type Connector interface {
	Connect(ctx context.Context, cfg ConnectionCfg) error
	Exec(ctx context.Context, cmd string, opts *ExecOptions) (stdout, stderr []byte, err error)
	CopyContent(ctx context.Context, content []byte, destPath string, opts *FileTransferOptions) error
	Upload(ctx context.Context, localPath, remotePath string, opts *FileTransferOptions) error
	GetOS(ctx context.Context) (*OS, error)
	IsConnected() bool
	Close() error
}
