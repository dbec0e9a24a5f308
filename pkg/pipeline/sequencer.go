// Package pipeline drives a Puppet Enterprise install across a planned
// topology. The install is a fixed, ordered list of stages; each stage fans
// out over its hosts through an executor.Executor and finishes only when
// every host has answered, so no two stages ever overlap.
package pipeline

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mensylisir/pexm/pkg/artifact"
	"github.com/mensylisir/pexm/pkg/common"
	"github.com/mensylisir/pexm/pkg/connector"
	"github.com/mensylisir/pexm/pkg/errors/errdefs"
	"github.com/mensylisir/pexm/pkg/executor"
	"github.com/mensylisir/pexm/pkg/keymaterial"
	"github.com/mensylisir/pexm/pkg/logger"
	"github.com/mensylisir/pexm/pkg/peconf"
	"github.com/mensylisir/pexm/pkg/topology"
)

// Inputs is everything a run consumes. It is read-only once the Sequencer
// is built.
type Inputs struct {
	Topology *topology.Topology
	// Bundles holds the composed pe.conf per role. The master bundle is
	// required; database bundles are required when their host exists.
	Bundles map[peconf.Role]*peconf.Bundle
	// Key is the control-repo private key; nil skips key deployment.
	Key *keymaterial.Material

	Version         string
	Platform        string
	ConsolePassword string
	DNSAltNames     []string
	// InstallerURL overrides the download location derived from Version
	// and Platform.
	InstallerURL string
	StagingDir   string
	CSRSignDelay time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sequencer runs the install stages in order.
type Sequencer struct {
	in        Inputs
	exec      executor.Executor
	sleep     Sleeper
	observers []Observer
	runID     string

	confs      map[peconf.Role][]byte
	tarball    string
	installURL string
	stages     []Stage
}

type Option func(*Sequencer)

// WithSleeper replaces the wait used by the delay stage.
func WithSleeper(s Sleeper) Option {
	return func(q *Sequencer) { q.sleep = s }
}

func WithObserver(o Observer) Option {
	return func(q *Sequencer) { q.observers = append(q.observers, o) }
}

func WithRunID(id string) Option {
	return func(q *Sequencer) { q.runID = id }
}

// New validates in and builds the stage list. Nothing remote happens here.
func New(exec executor.Executor, in Inputs, opts ...Option) (*Sequencer, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	return build(exec, in, opts...)
}

// Preview builds the stage list of in without an executor, for dry runs.
// The returned stages must not be run.
func Preview(in Inputs) ([]Stage, error) {
	s, err := build(nil, in)
	if err != nil {
		return nil, err
	}
	return s.Stages(), nil
}

func build(exec executor.Executor, in Inputs, opts ...Option) (*Sequencer, error) {
	if in.Topology == nil {
		return nil, errdefs.NewConfigError("topology is required")
	}
	if in.Version == "" {
		return nil, errdefs.NewConfigError("version is required")
	}

	s := &Sequencer{
		in:    in,
		exec:  exec,
		sleep: contextSleep,
		runID: uuid.NewString()[:8],
		confs: map[peconf.Role][]byte{},
	}
	for _, opt := range opts {
		opt(s)
	}

	required := map[peconf.Role]string{
		peconf.RoleMaster:                  in.Topology.Master(),
		peconf.RolePuppetDBDatabase:        in.Topology.PuppetDBDatabase(),
		peconf.RolePuppetDBDatabaseReplica: in.Topology.PuppetDBDatabaseReplica(),
	}
	for role, host := range required {
		if host == "" {
			continue
		}
		b, ok := in.Bundles[role]
		if !ok || b == nil {
			return nil, errdefs.NewConfigError("missing pe.conf bundle for role %s", role)
		}
		rendered, err := b.Render()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to render pe.conf for role %s", role)
		}
		s.confs[role] = rendered
	}

	s.installURL = in.InstallerURL
	if s.installURL == "" && in.Platform != "" {
		u, err := artifact.InstallerURL("", in.Version, in.Platform)
		if err != nil {
			return nil, err
		}
		s.installURL = u
	}
	s.tarball = artifact.TarballName(in.Version, in.Platform)
	if s.installURL != "" {
		s.tarball = artifact.StagedName(s.installURL, s.tarball)
	}
	s.stages = s.buildStages()
	return s, nil
}

// RunID identifies this run in logs.
func (s *Sequencer) RunID() string { return s.runID }

// Stages returns the stage list in execution order.
func (s *Sequencer) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

func (s *Sequencer) remoteTarball() string {
	return path.Join(common.RemoteUploadDir, s.tarball)
}

func (s *Sequencer) localTarball() string {
	return filepath.Join(s.in.StagingDir, s.tarball)
}

// Run executes every stage in order and returns a completion message. The
// first hard failure stops the run; later stages never start.
func (s *Sequencer) Run(ctx context.Context) (string, error) {
	if s.installURL == "" {
		return "", errdefs.NewConfigError("installer platform is unknown; set platform or installerURL")
	}
	runLog := logger.Get().With("run", s.runID)
	total := len(s.stages)
	for i, st := range s.stages {
		log := runLog.With("stage", st.Name)
		s.exec.Progress(fmt.Sprintf("[%d/%d] %s", i+1, total, st.Description))
		for _, o := range s.observers {
			o.StageStarted(i, st)
		}

		start := time.Now()
		outcome, err := s.runStage(ctx, st)
		for _, o := range s.observers {
			o.StageFinished(i, st, outcome, err)
		}

		switch outcome {
		case Failed:
			log.Errorf("stage failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
			return "", errors.Wrapf(err, "stage %s failed", st.Name)
		case Tolerated:
			log.Warnf("expected failure ignored: %v", err)
		case Skipped:
			log.Infof("nothing to do")
		default:
			log.Successf("done in %s", time.Since(start).Round(time.Millisecond))
		}
	}

	topo := s.in.Topology
	return fmt.Sprintf("Puppet Enterprise %s installed on %d host(s); console at https://%s",
		s.in.Version, len(topo.AllHosts()), topo.Master()), nil
}

func (s *Sequencer) runStage(ctx context.Context, st Stage) (Outcome, error) {
	if st.Kind == KindDelay {
		if err := s.sleep(ctx, st.Delay); err != nil {
			return Failed, err
		}
		return Succeeded, nil
	}

	skipped, err := st.run(ctx)
	switch {
	case err == nil && skipped:
		return Skipped, nil
	case err == nil:
		return Succeeded, nil
	case st.Kind == KindSoft && installerFailure(err):
		return Tolerated, err
	default:
		return Failed, err
	}
}

// installerFailure reports whether every host of a remote failure ran the
// command and got a non-zero exit back. Unreachable hosts and transport
// errors do not qualify.
func installerFailure(err error) bool {
	var remote *errdefs.RemoteOperationError
	if !errors.As(err, &remote) || len(remote.Failures) == 0 {
		return false
	}
	for _, ferr := range remote.Failures {
		var cmdErr *connector.CommandError
		if !errors.As(ferr, &cmdErr) || cmdErr.ExitCode <= 0 {
			return false
		}
	}
	return true
}
