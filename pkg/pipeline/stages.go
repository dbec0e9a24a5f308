package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mensylisir/pexm/pkg/common"
	"github.com/mensylisir/pexm/pkg/executor"
	"github.com/mensylisir/pexm/pkg/hostset"
	"github.com/mensylisir/pexm/pkg/operation"
	"github.com/mensylisir/pexm/pkg/peconf"
	"github.com/mensylisir/pexm/pkg/preflight"
	"github.com/mensylisir/pexm/pkg/topology"
)

// Stage names, in execution order.
const (
	StagePreflight          = "preflight"
	StageConfigGeneration   = "config-generation"
	StageArtifactStaging    = "artifact-staging"
	StageCSRAttributes      = "csr-attributes"
	StageMasterBootstrap    = "master-bootstrap"
	StageKeyDeployment      = "key-deployment"
	StageAutosign           = "autosign"
	StageDatabaseInstall    = "database-install"
	StageMasterFinalize     = "master-finalize"
	StageReplicationStub    = "replication-stub"
	StageAgentInstall       = "agent-install"
	StageCSRSubmission      = "csr-submission"
	StageCSRVisibilityDelay = "csr-visibility-delay"
	StageCertSigning        = "cert-signing"
	StageConvergence        = "convergence"
)

const sitePP = "node default {}\n"

// one is the host set of an optional single host.
func one(host string) []string {
	return hostset.Flatten(hostset.Of(host))
}

func (s *Sequencer) buildStages() []Stage {
	topo := s.in.Topology
	master := one(topo.Master())

	bootstrapKind := KindHard
	if topo.HasExternalDatabase() {
		// without its database the installer cannot start puppetdb and
		// reports failure
		bootstrapKind = KindSoft
	}

	keyTargets := []string{}
	if s.in.Key != nil {
		keyTargets = hostset.Flatten(master, one(topo.MasterReplica()))
	}

	return []Stage{
		{
			Name: StagePreflight, Kind: KindHard, Targets: topo.AllHosts(),
			Description: "Validating hostnames",
			run:         s.preflight,
		},
		{
			Name: StageConfigGeneration, Kind: KindHard, Targets: topo.InstallerHosts(),
			Description: "Uploading pe.conf",
			run:         s.configGeneration,
		},
		{
			Name: StageArtifactStaging, Kind: KindHard, Targets: topo.InstallerHosts(),
			Description: "Staging installer " + s.tarball,
			run:         s.artifactStaging,
		},
		{
			Name: StageCSRAttributes, Kind: KindHard, Targets: topo.InstallerHosts(),
			Description: "Writing certificate extension requests",
			run:         s.csrAttributes,
		},
		{
			Name: StageMasterBootstrap, Kind: bootstrapKind, Targets: master,
			Description: "Installing Puppet Enterprise on the master",
			run:         s.masterBootstrap,
		},
		{
			Name: StageKeyDeployment, Kind: KindHard, Targets: keyTargets,
			Description: "Deploying control repository key",
			run:         s.keyDeployment,
		},
		{
			Name: StageAutosign, Kind: KindHard, Targets: master,
			Description: "Allowing database hosts to autosign",
			run:         s.autosign,
		},
		{
			Name: StageDatabaseInstall, Kind: KindHard, Targets: topo.DatabaseHosts(),
			Description: "Installing Puppet Enterprise on database hosts",
			run:         s.databaseInstall,
		},
		{
			Name: StageMasterFinalize, Kind: KindHard, Targets: master,
			Description: "Restarting PuppetDB and obtaining an API token",
			run:         s.masterFinalize,
		},
		{
			Name: StageReplicationStub, Kind: KindHard, Targets: master,
			Description: "Committing a placeholder production environment",
			run:         s.replicationStub,
		},
		{
			Name: StageAgentInstall, Kind: KindHard, Targets: topo.AgentHosts(),
			Description: "Installing agents on replica and compilers",
			run:         s.agentInstall,
		},
		{
			Name: StageCSRSubmission, Kind: KindHard, Targets: topo.AgentHosts(),
			Description: "Submitting certificate requests",
			run:         s.csrSubmission,
		},
		{
			Name: StageCSRVisibilityDelay, Kind: KindDelay, Targets: []string{},
			Delay:       s.in.CSRSignDelay,
			Description: fmt.Sprintf("Waiting %s for certificate requests to arrive", s.in.CSRSignDelay),
		},
		{
			Name: StageCertSigning, Kind: KindHard, Targets: master,
			Description: "Signing agent certificates",
			run:         s.certSigning,
		},
		{
			Name: StageConvergence, Kind: KindHard, Targets: hostset.Flatten(master, topo.AllHosts()),
			Description: "Running puppet on the master, then everywhere else",
			run:         s.convergence,
		},
	}
}

// parallel runs the calls of one stage at once and returns the first error
// after all of them have finished.
func parallel(fns ...func() error) error {
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	return g.Wait()
}

func (s *Sequencer) preflight(ctx context.Context) (bool, error) {
	return false, preflight.ValidateHostnames(ctx, s.exec, s.in.Topology.AllHosts())
}

func (s *Sequencer) roleHosts() map[peconf.Role]string {
	topo := s.in.Topology
	return map[peconf.Role]string{
		peconf.RoleMaster:                  topo.Master(),
		peconf.RolePuppetDBDatabase:        topo.PuppetDBDatabase(),
		peconf.RolePuppetDBDatabaseReplica: topo.PuppetDBDatabaseReplica(),
	}
}

func (s *Sequencer) configGeneration(ctx context.Context) (bool, error) {
	var fns []func() error
	for role, host := range s.roleHosts() {
		if host == "" {
			continue
		}
		content, hosts := s.confs[role], one(host)
		fns = append(fns, func() error {
			_, err := s.exec.UploadContent(ctx, content, common.PEConfPath, hosts, &executor.UploadOptions{Mode: "0600"})
			return err
		})
	}
	return false, parallel(fns...)
}

func (s *Sequencer) artifactStaging(ctx context.Context) (bool, error) {
	_, err := s.exec.FetchAndStage(ctx, s.installURL, s.localTarball(), s.remoteTarball(), s.in.Topology.InstallerHosts())
	return false, err
}

func (s *Sequencer) csrAttributes(ctx context.Context) (bool, error) {
	topo := s.in.Topology
	targets := []struct {
		host, role, cluster string
	}{
		{topo.Master(), common.RoleMaster, topology.ClusterA},
		{topo.PuppetDBDatabase(), common.RolePuppetDBDatabase, topology.ClusterA},
		{topo.PuppetDBDatabaseReplica(), common.RolePuppetDBDatabase, topology.ClusterB},
	}
	var fns []func() error
	for _, t := range targets {
		if t.host == "" {
			continue
		}
		content, err := csrAttributesFor(t.role, t.cluster)
		if err != nil {
			return false, err
		}
		hosts := one(t.host)
		fns = append(fns, func() error {
			_, err := s.exec.UploadContent(ctx, content, common.CSRAttributesPath, hosts, &executor.UploadOptions{Mode: "0644"})
			return err
		})
	}
	return false, parallel(fns...)
}

func (s *Sequencer) installParams() operation.Params {
	return operation.Params{
		"Tarball":    s.remoteTarball(),
		"InstallDir": common.PEInstallerDir,
		"ConfigPath": common.PEConfPath,
	}
}

func (s *Sequencer) masterBootstrap(ctx context.Context) (bool, error) {
	_, err := s.exec.RunOperation(ctx, operation.PEInstall, one(s.in.Topology.Master()), s.installParams())
	return false, err
}

func (s *Sequencer) keyDeployment(ctx context.Context) (bool, error) {
	if s.in.Key == nil {
		return true, nil
	}
	topo := s.in.Topology
	hosts := hostset.Flatten(one(topo.Master()), one(topo.MasterReplica()))
	_, err := s.exec.UploadContent(ctx, s.in.Key.Bytes(), common.R10kPrivateKeyPath, hosts, &executor.UploadOptions{
		Owner:             common.PEPuppetUser,
		Group:             common.PEPuppetGroup,
		Mode:              common.R10kPrivateKeyMode,
		RecursiveChownDir: common.R10kPrivateKeyDir,
	})
	return false, err
}

func (s *Sequencer) autosign(ctx context.Context) (bool, error) {
	var b strings.Builder
	for _, h := range s.in.Topology.DatabaseHosts() {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	_, err := s.exec.UploadContent(ctx, []byte(b.String()), common.AutosignPath, one(s.in.Topology.Master()), &executor.UploadOptions{
		Owner: common.PEPuppetUser,
		Group: common.PEPuppetGroup,
		Mode:  "0644",
	})
	return false, err
}

func (s *Sequencer) databaseInstall(ctx context.Context) (bool, error) {
	hosts := s.in.Topology.DatabaseHosts()
	if len(hosts) == 0 {
		return true, nil
	}
	_, err := s.exec.RunOperation(ctx, operation.PEInstall, hosts, s.installParams())
	return false, err
}

func (s *Sequencer) masterFinalize(ctx context.Context) (bool, error) {
	master := s.in.Topology.Master()
	hosts := one(master)
	if _, err := s.exec.RunOperation(ctx, operation.PuppetDBRestart, hosts, nil); err != nil {
		return false, err
	}
	results, err := s.exec.RunOperation(ctx, operation.RBACToken, hosts, operation.Params{
		"Master":   master,
		"User":     common.DefaultRBACUser,
		"Password": s.in.ConsolePassword,
	})
	if err != nil {
		return false, err
	}
	token := results.Output(master)
	if token == "" {
		return false, fmt.Errorf("%s returned an empty token", operation.RBACToken)
	}
	_, err = s.exec.UploadContent(ctx, []byte(token), common.RBACTokenPath, hosts, &executor.UploadOptions{Mode: "0600"})
	return false, err
}

func (s *Sequencer) replicationStub(ctx context.Context) (bool, error) {
	master := s.in.Topology.Master()
	hosts := one(master)
	_, err := s.exec.UploadContent(ctx, []byte(sitePP), common.ProductionSitePPPath, hosts, &executor.UploadOptions{
		Owner:             common.PEPuppetUser,
		Group:             common.PEPuppetGroup,
		Mode:              "0644",
		RecursiveChownDir: common.CodeStagingDir,
	})
	if err != nil {
		return false, err
	}
	_, err = s.exec.RunOperation(ctx, operation.FileSyncCommit, hosts, operation.Params{"Master": master})
	return false, err
}

func (s *Sequencer) agentInstall(ctx context.Context) (bool, error) {
	topo := s.in.Topology
	groups := []struct {
		hosts         []string
		role, cluster string
	}{
		{one(topo.MasterReplica()), common.RoleMaster, topology.ClusterB},
		{topo.CompilerClusterA(), common.RoleCompiler, topology.ClusterA},
		{topo.CompilerClusterB(), common.RoleCompiler, topology.ClusterB},
	}
	var fns []func() error
	for _, g := range groups {
		if len(g.hosts) == 0 {
			continue
		}
		hosts := g.hosts
		params := operation.Params{
			"Master":      topo.Master(),
			"DNSAltNames": append([]string(nil), s.in.DNSAltNames...),
			"Role":        g.role,
			"Cluster":     g.cluster,
		}
		fns = append(fns, func() error {
			_, err := s.exec.RunOperation(ctx, operation.AgentInstall, hosts, params)
			return err
		})
	}
	if len(fns) == 0 {
		return true, nil
	}
	return false, parallel(fns...)
}

func (s *Sequencer) csrSubmission(ctx context.Context) (bool, error) {
	hosts := s.in.Topology.AgentHosts()
	if len(hosts) == 0 {
		return true, nil
	}
	_, err := s.exec.RunOperation(ctx, operation.SubmitCSR, hosts, nil)
	return false, err
}

func (s *Sequencer) certSigning(ctx context.Context) (bool, error) {
	agents := s.in.Topology.AgentHosts()
	if len(agents) == 0 {
		return true, nil
	}
	_, err := s.exec.RunOperation(ctx, operation.SignCSR, one(s.in.Topology.Master()), operation.Params{
		"Certnames": agents,
	})
	return false, err
}

func (s *Sequencer) convergence(ctx context.Context) (bool, error) {
	topo := s.in.Topology
	if _, err := s.exec.RunOperation(ctx, operation.PuppetRunOnce, one(topo.Master()), nil); err != nil {
		return false, err
	}
	rest := hostset.Without(topo.AllHosts(), topo.Master())
	if len(rest) == 0 {
		return false, nil
	}
	_, err := s.exec.RunOperation(ctx, operation.PuppetRunOnce, rest, nil)
	return false, err
}
