package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/mensylisir/pexm/pkg/connector"
)

// Run executes a command and returns combined stdout/stderr and error.
func (r *defaultRunner) Run(ctx context.Context, conn connector.Connector, cmd string, sudo bool) (string, error) {
	if conn == nil {
		return "", fmt.Errorf("connector cannot be nil")
	}
	stdout, stderr, err := conn.Exec(ctx, cmd, &connector.ExecOptions{Sudo: sudo})
	output := string(stdout)
	if len(stderr) > 0 {
		if len(output) > 0 {
			output += "\n"
		}
		output += string(stderr)
	}
	return output, err
}

// Check executes a command and returns true if it exits with 0, false otherwise.
// Only transport failures are returned as errors.
func (r *defaultRunner) Check(ctx context.Context, conn connector.Connector, cmd string, sudo bool) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("connector cannot be nil")
	}
	_, _, err := conn.Exec(ctx, cmd, &connector.ExecOptions{Sudo: sudo})
	if err == nil {
		return true, nil
	}
	var cmdError *connector.CommandError
	if errors.As(err, &cmdError) {
		return false, nil
	}
	return false, err
}

// RunWithOptions provides full control over connector.ExecOptions.
func (r *defaultRunner) RunWithOptions(ctx context.Context, conn connector.Connector, cmd string, opts *connector.ExecOptions) (stdout, stderr []byte, err error) {
	if conn == nil {
		return nil, nil, fmt.Errorf("connector cannot be nil")
	}
	if opts == nil {
		opts = &connector.ExecOptions{}
	}
	return conn.Exec(ctx, cmd, opts)
}
