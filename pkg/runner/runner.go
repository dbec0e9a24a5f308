package runner

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mensylisir/pexm/pkg/connector"
)

type defaultRunner struct{}

// New creates a new stateless Runner service.
func New() Runner {
	return &defaultRunner{}
}

// GatherFacts collects OS details and hostname concurrently and derives the
// installer platform tag.
func (r *defaultRunner) GatherFacts(ctx context.Context, conn connector.Connector) (*Facts, error) {
	if conn == nil {
		return nil, fmt.Errorf("connector cannot be nil")
	}
	facts := &Facts{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		osInfo, err := conn.GetOS(gCtx)
		if err != nil {
			return fmt.Errorf("failed to get OS info: %w", err)
		}
		if osInfo == nil {
			return fmt.Errorf("conn.GetOS returned nil OS without error")
		}
		facts.OS = osInfo
		facts.Kernel = osInfo.Kernel
		return nil
	})

	g.Go(func() error {
		hostname, err := r.Hostname(gCtx, conn)
		if err != nil {
			return err
		}
		facts.Hostname = hostname
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	facts.Platform = PlatformTag(facts.OS)
	return facts, nil
}

// Hostname returns the fully qualified name the host reports for itself,
// falling back to the short name when no domain is configured.
func (r *defaultRunner) Hostname(ctx context.Context, conn connector.Connector) (string, error) {
	if conn == nil {
		return "", fmt.Errorf("connector cannot be nil")
	}
	out, _, err := conn.Exec(ctx, "hostname -f", nil)
	if err != nil || strings.TrimSpace(string(out)) == "" {
		out, _, err = conn.Exec(ctx, "hostname", nil)
		if err != nil {
			return "", fmt.Errorf("failed to get hostname (hostname -f and hostname): %w", err)
		}
	}
	return strings.TrimSpace(string(out)), nil
}
