package cmd

import (
	"github.com/pkg/errors"

	"github.com/mensylisir/pexm/pkg/config"
	"github.com/mensylisir/pexm/pkg/keymaterial"
	"github.com/mensylisir/pexm/pkg/peconf"
	"github.com/mensylisir/pexm/pkg/pipeline"
	"github.com/mensylisir/pexm/pkg/topology"
)

// session is a loaded and validated plan with everything derived from it
// that needs no remote access.
type session struct {
	plan    *config.Plan
	topo    *topology.Topology
	bundles map[peconf.Role]*peconf.Bundle
	key     *keymaterial.Material
}

func loadSession(path string) (*session, error) {
	p, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load plan %s", path)
	}
	topo, err := topology.Plan(p.TopologyInput())
	if err != nil {
		return nil, err
	}
	src, err := p.KeySource()
	if err != nil {
		return nil, err
	}
	key, err := keymaterial.Resolve(src)
	if err != nil {
		return nil, err
	}
	return &session{
		plan:    p,
		topo:    topo,
		bundles: peconf.ComposeAll(p.PEConfParams(), p.PEConfData),
		key:     key,
	}, nil
}

// inputs assembles the sequencer inputs; platform overrides the plan's.
func (s *session) inputs(platform string) pipeline.Inputs {
	if platform == "" {
		platform = s.plan.Platform
	}
	return pipeline.Inputs{
		Topology:        s.topo,
		Bundles:         s.bundles,
		Key:             s.key,
		Version:         s.plan.Version,
		Platform:        platform,
		ConsolePassword: s.plan.ConsolePassword,
		DNSAltNames:     s.plan.DNSAltNames,
		InstallerURL:    s.plan.InstallerURL,
		StagingDir:      s.plan.StagingDir,
		CSRSignDelay:    s.plan.CSRSignDelay.Duration,
	}
}

// needsPlatform reports whether the installer location can only be known
// after asking the master for its OS.
func (s *session) needsPlatform() bool {
	return s.plan.Platform == "" && s.plan.InstallerURL == ""
}
