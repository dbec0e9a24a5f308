// Package preflight holds checks that must pass before anything is
// installed.
package preflight

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/pexm/pkg/errors/errdefs"
	"github.com/mensylisir/pexm/pkg/executor"
	"github.com/mensylisir/pexm/pkg/logger"
	"github.com/mensylisir/pexm/pkg/operation"
)

// ValidateHostnames asks every host for its own hostname and compares it
// with the name the host is addressed by. Reports are gathered from all
// hosts concurrently; the comparison then stops at the first mismatch, in
// host order, with a PreflightError. Comparison is exact after trimming
// surrounding whitespace.
func ValidateHostnames(ctx context.Context, exec executor.Executor, hosts []string) error {
	if len(hosts) == 0 {
		return nil
	}
	results, err := exec.RunOperation(ctx, operation.Hostname, hosts, nil)
	if err != nil {
		return errors.Wrap(err, "failed to collect hostnames")
	}

	for _, host := range hosts {
		reported := strings.TrimSpace(results.Output(host))
		if reported != host {
			return &errdefs.PreflightError{Expected: host, Reported: reported}
		}
		logger.Get().With("host", host).Debugf("hostname matches")
	}
	return nil
}
