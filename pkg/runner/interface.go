package runner

import (
	"context"

	"github.com/mensylisir/pexm/pkg/connector"
)

// Facts is what pexm needs to know about a host before installing on it.
type Facts struct {
	OS       *connector.OS
	Hostname string
	Kernel   string
	// Platform is the installer platform tag, e.g. "el-7-x86_64".
	// Empty when the distribution is not one the installer ships for.
	Platform string
}

// Runner is a stateless library of host operations over a connector.
type Runner interface {
	GatherFacts(ctx context.Context, conn connector.Connector) (*Facts, error)
	Hostname(ctx context.Context, conn connector.Connector) (string, error)
	Run(ctx context.Context, conn connector.Connector, cmd string, sudo bool) (string, error)
	Check(ctx context.Context, conn connector.Connector, cmd string, sudo bool) (bool, error)
	RunWithOptions(ctx context.Context, conn connector.Connector, cmd string, opts *connector.ExecOptions) (stdout, stderr []byte, err error)
	Exists(ctx context.Context, conn connector.Connector, path string) (bool, error)
	WriteFile(ctx context.Context, conn connector.Connector, content []byte, destPath string, opts *connector.FileTransferOptions) error
	Upload(ctx context.Context, conn connector.Connector, localPath, destPath string, opts *connector.FileTransferOptions) error
	Chown(ctx context.Context, conn connector.Connector, path, owner, group string, recursive bool) error
	Remove(ctx context.Context, conn connector.Connector, path string, sudo bool) error
}
