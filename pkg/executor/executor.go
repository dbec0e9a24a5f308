// Package executor runs remote work against host sets for the install
// pipeline. Every call fans out over its hosts and returns only once each
// host has reported, so callers get a barrier between calls for free.
package executor

import (
	"context"
	"sort"

	"github.com/mensylisir/pexm/pkg/errors/errdefs"
	"github.com/mensylisir/pexm/pkg/operation"
)

// Result is the outcome of one host.
type Result struct {
	Host   string
	Output string
	Err    error
}

// Results maps host to its result. Every targeted host has an entry.
type Results map[string]Result

// Output returns the output reported by host.
func (r Results) Output(host string) string {
	return r[host].Output
}

// Hosts returns the hosts in sorted order.
func (r Results) Hosts() []string {
	hosts := make([]string, 0, len(r))
	for h := range r {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Err folds the per-host failures into a RemoteOperationError, or nil when
// every host succeeded.
func (r Results) Err(op string) error {
	failures := map[string]error{}
	for h, res := range r {
		if res.Err != nil {
			failures[h] = res.Err
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &errdefs.RemoteOperationError{Operation: op, Failures: failures}
}

// UploadOptions set ownership and mode on uploaded content.
type UploadOptions struct {
	Owner string
	Group string
	Mode  string
	// RecursiveChownDir, when set, is chowned recursively to Owner:Group
	// after the upload.
	RecursiveChownDir string
}

// Executor is what the install pipeline needs from the outside world.
// Calls with an empty host set succeed without contacting anything. A
// non-nil error from a host-targeting call is a *errdefs.RemoteOperationError
// unless the call failed before reaching any host.
type Executor interface {
	RunOperation(ctx context.Context, name string, hosts []string, params operation.Params) (Results, error)
	RunCommand(ctx context.Context, command string, hosts []string) (Results, error)
	UploadContent(ctx context.Context, content []byte, remotePath string, hosts []string, opts *UploadOptions) (Results, error)
	FetchAndStage(ctx context.Context, sourceURL, localPath, uploadPath string, hosts []string) (Results, error)
	Progress(msg string)
}
