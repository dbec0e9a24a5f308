package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mensylisir/pexm/pkg/artifact"
	"github.com/mensylisir/pexm/pkg/connector"
	"github.com/mensylisir/pexm/pkg/logger"
	"github.com/mensylisir/pexm/pkg/operation"
	"github.com/mensylisir/pexm/pkg/runner"
)

// DefaultConcurrency is how many hosts one call works on at once unless
// overridden.
const DefaultConcurrency = 10

// HostResolver returns how to reach host.
type HostResolver func(host string) connector.ConnectionCfg

// Fleet is the SSH-backed Executor. Connections are opened lazily, one per
// host, and reused across calls.
type Fleet struct {
	resolve     HostResolver
	factory     connector.Factory
	pool        *connector.ConnectionPool
	runner      runner.Runner
	registry    *operation.Registry
	stager      *artifact.Stager
	concurrency int
	sudo        bool

	mu    sync.Mutex
	conns map[string]connector.Connector
}

type FleetOption func(*Fleet)

// WithConcurrency caps how many hosts a single call works on at once.
// Zero means no limit.
func WithConcurrency(n int) FleetOption {
	return func(f *Fleet) { f.concurrency = n }
}

func WithRegistry(r *operation.Registry) FleetOption {
	return func(f *Fleet) { f.registry = r }
}

func WithStager(s *artifact.Stager) FleetOption {
	return func(f *Fleet) { f.stager = s }
}

func WithFactory(factory connector.Factory) FleetOption {
	return func(f *Fleet) { f.factory = factory }
}

func WithRunner(r runner.Runner) FleetOption {
	return func(f *Fleet) { f.runner = r }
}

// WithSudo controls whether raw commands and uploads escalate.
func WithSudo(sudo bool) FleetOption {
	return func(f *Fleet) { f.sudo = sudo }
}

func NewFleet(resolve HostResolver, opts ...FleetOption) *Fleet {
	f := &Fleet{
		resolve:     resolve,
		factory:     connector.NewFactory(),
		pool:        connector.NewConnectionPool(connector.DefaultPoolConfig()),
		runner:      runner.New(),
		registry:    operation.Builtin(),
		stager:      artifact.NewStager(),
		sudo:        true,
		concurrency: DefaultConcurrency,
		conns:       make(map[string]connector.Connector),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fleet) connect(ctx context.Context, host string) (connector.Connector, error) {
	f.mu.Lock()
	if c, ok := f.conns[host]; ok {
		f.mu.Unlock()
		return c, nil
	}
	f.mu.Unlock()

	cfg := f.resolve(host)
	if cfg.Host == "" {
		cfg.Host = host
	}
	var conn connector.Connector
	if connector.IsLocalHost(cfg.Host) {
		conn = f.factory.NewLocalConnector()
	} else {
		conn = f.factory.NewSSHConnector(f.pool)
	}
	if err := conn.Connect(ctx, cfg); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conns[host]; ok {
		_ = conn.Close()
		return c, nil
	}
	f.conns[host] = conn
	return conn, nil
}

type hostFunc func(ctx context.Context, host string, conn connector.Connector) (string, error)

// fanOut runs fn on every host and waits for all of them. A failing host
// does not cancel the others.
func (f *Fleet) fanOut(ctx context.Context, op string, hosts []string, fn hostFunc) (Results, error) {
	results := make(Results, len(hosts))
	if len(hosts) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	for _, host := range hosts {
		host := host
		g.Go(func() error {
			log := logger.Get().With("host", host)
			var out string
			conn, err := f.connect(ctx, host)
			if err == nil {
				out, err = fn(ctx, host, conn)
			}
			if err != nil {
				log.Errorf("%s failed: %v", op, err)
			} else {
				log.Debugf("%s succeeded", op)
			}
			mu.Lock()
			results[host] = Result{Host: host, Output: out, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results, results.Err(op)
}

func (f *Fleet) RunOperation(ctx context.Context, name string, hosts []string, params operation.Params) (Results, error) {
	cmd, err := f.registry.Render(name, params)
	if err != nil {
		return nil, err
	}
	return f.fanOut(ctx, name, hosts, func(ctx context.Context, host string, conn connector.Connector) (string, error) {
		stdout, _, err := f.runner.RunWithOptions(ctx, conn, cmd.Cmd, &connector.ExecOptions{Sudo: cmd.Sudo, Stdin: cmd.Stdin})
		if err != nil {
			var cmdErr *connector.CommandError
			if !errors.As(err, &cmdErr) || !cmd.Accepts(cmdErr.ExitCode) {
				return "", err
			}
		}
		return cmd.Output(stdout)
	})
}

func (f *Fleet) RunCommand(ctx context.Context, command string, hosts []string) (Results, error) {
	return f.fanOut(ctx, "shell", hosts, func(ctx context.Context, host string, conn connector.Connector) (string, error) {
		return f.runner.Run(ctx, conn, command, f.sudo)
	})
}

func (f *Fleet) UploadContent(ctx context.Context, content []byte, remotePath string, hosts []string, opts *UploadOptions) (Results, error) {
	if opts == nil {
		opts = &UploadOptions{}
	}
	op := "upload " + remotePath
	return f.fanOut(ctx, op, hosts, func(ctx context.Context, host string, conn connector.Connector) (string, error) {
		transfer := &connector.FileTransferOptions{
			Permissions: opts.Mode,
			Owner:       opts.Owner,
			Group:       opts.Group,
			Sudo:        f.sudo,
		}
		if err := f.runner.WriteFile(ctx, conn, content, remotePath, transfer); err != nil {
			return "", err
		}
		if opts.RecursiveChownDir != "" {
			if err := f.runner.Chown(ctx, conn, opts.RecursiveChownDir, opts.Owner, opts.Group, true); err != nil {
				return "", err
			}
		}
		return "", nil
	})
}

func (f *Fleet) FetchAndStage(ctx context.Context, sourceURL, localPath, uploadPath string, hosts []string) (Results, error) {
	if len(hosts) == 0 {
		return Results{}, nil
	}
	if err := f.stager.Fetch(ctx, sourceURL, localPath); err != nil {
		return nil, err
	}
	op := "stage " + uploadPath
	return f.fanOut(ctx, op, hosts, func(ctx context.Context, host string, conn connector.Connector) (string, error) {
		return "", f.runner.Upload(ctx, conn, localPath, uploadPath, &connector.FileTransferOptions{Sudo: f.sudo})
	})
}

func (f *Fleet) Progress(msg string) {
	logger.Get().Infof("%s", msg)
}

// Facts gathers OS facts from host.
func (f *Fleet) Facts(ctx context.Context, host string) (*runner.Facts, error) {
	conn, err := f.connect(ctx, host)
	if err != nil {
		return nil, err
	}
	facts, err := f.runner.GatherFacts(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to gather facts from %s: %w", host, err)
	}
	return facts, nil
}

// Close closes every connection and the shared pool.
func (f *Fleet) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for host, c := range f.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", host, err))
		}
		delete(f.conns, host)
	}
	f.pool.Shutdown()
	return errors.Join(errs...)
}

var _ Executor = (*Fleet)(nil)
