package config

import (
	"github.com/Masterminds/semver/v3"

	"github.com/mensylisir/pexm/pkg/connector"
	"github.com/mensylisir/pexm/pkg/errors/errdefs"
	"github.com/mensylisir/pexm/pkg/errors/validation"
	"github.com/mensylisir/pexm/pkg/hostset"
	"github.com/mensylisir/pexm/pkg/topology"
)

// Validate reports field problems all at once as a ConfigError, then checks
// the HA layout and the key source, which fail with their own ConfigError.
func Validate(p *Plan) error {
	verrs := &validation.ValidationErrors{}
	if p.Master == "" {
		verrs.AddError("master", "is required")
	}
	if p.ConsolePassword == "" {
		verrs.AddError("consolePassword", "is required")
	}
	if p.Version == "" {
		verrs.AddError("version", "is required")
	} else if _, err := semver.NewVersion(p.Version); err != nil {
		verrs.AddError("version", "is not a valid version: "+err.Error())
	}

	seen := map[string]string{}
	mark := func(field, host string) {
		if host == "" {
			return
		}
		if prev, ok := seen[host]; ok {
			verrs.AddError(field, "host "+host+" is already used as "+prev)
			return
		}
		seen[host] = field
	}
	mark("master", p.Master)
	mark("puppetdbDatabase", p.PuppetDBDatabase)
	mark("masterReplica", p.MasterReplica)
	mark("puppetdbDatabaseReplica", p.PuppetDBDatabaseReplica)
	for _, c := range p.Compilers {
		if c == "" {
			verrs.AddError("compilers", "must not contain empty entries")
			continue
		}
		mark("compilers", c)
	}

	if p.Concurrency < 0 {
		verrs.AddError("concurrency", "must not be negative")
	}
	if p.CSRSignDelay.Duration < 0 {
		verrs.AddError("csrSignDelay", "must not be negative")
	}
	if p.SSH.Password == "" && p.SSH.PrivateKeyPath == "" {
		for _, h := range hostset.Flatten(hostset.Of(p.Master, p.PuppetDBDatabase, p.MasterReplica, p.PuppetDBDatabaseReplica), p.Compilers) {
			o := p.Hosts[h]
			if o.Password == "" && o.PrivateKeyPath == "" && !connector.IsLocalHost(h) {
				verrs.AddError("hosts."+h, "no ssh password or privateKeyPath")
			}
		}
	}
	for h := range p.Hosts {
		if _, ok := seen[h]; !ok {
			verrs.AddError("hosts."+h, "is not part of the topology")
		}
	}

	if verrs.HasErrors() {
		return &errdefs.ConfigError{Reason: "configuration validation failed:\n" + verrs.Error()}
	}

	if _, err := topology.Plan(p.TopologyInput()); err != nil {
		return err
	}
	if _, err := p.KeySource(); err != nil {
		return err
	}
	return nil
}
