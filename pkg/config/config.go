// Package config is the install plan file: which hosts play which role,
// what to install and how to reach the hosts.
package config

import (
	"fmt"
	"time"

	"github.com/mensylisir/pexm/pkg/keymaterial"
	"github.com/mensylisir/pexm/pkg/peconf"
	"github.com/mensylisir/pexm/pkg/topology"
)

// Plan is the user-facing install description.
type Plan struct {
	Master                  string   `yaml:"master" toml:"master"`
	Compilers               []string `yaml:"compilers,omitempty" toml:"compilers,omitempty"`
	MasterReplica           string   `yaml:"masterReplica,omitempty" toml:"masterReplica,omitempty"`
	PuppetDBDatabase        string   `yaml:"puppetdbDatabase,omitempty" toml:"puppetdbDatabase,omitempty"`
	PuppetDBDatabaseReplica string   `yaml:"puppetdbDatabaseReplica,omitempty" toml:"puppetdbDatabaseReplica,omitempty"`

	ConsolePassword string   `yaml:"consolePassword" toml:"consolePassword"`
	Version         string   `yaml:"version" toml:"version"`
	DNSAltNames     []string `yaml:"dnsAltNames,omitempty" toml:"dnsAltNames,omitempty"`
	// PEConfData is merged over every generated pe.conf; its keys win.
	PEConfData map[string]interface{} `yaml:"peConfData,omitempty" toml:"peConfData,omitempty"`

	R10kRemote            string `yaml:"r10kRemote,omitempty" toml:"r10kRemote,omitempty"`
	R10kPrivateKeyFile    string `yaml:"r10kPrivateKeyFile,omitempty" toml:"r10kPrivateKeyFile,omitempty"`
	R10kPrivateKeyContent string `yaml:"r10kPrivateKeyContent,omitempty" toml:"r10kPrivateKeyContent,omitempty"`

	StagingDir   string   `yaml:"stagingDir,omitempty" toml:"stagingDir,omitempty"`
	Platform     string   `yaml:"platform,omitempty" toml:"platform,omitempty"`
	InstallerURL string   `yaml:"installerURL,omitempty" toml:"installerURL,omitempty"`
	CSRSignDelay Duration `yaml:"csrSignDelay,omitempty" toml:"csrSignDelay,omitempty"`
	Concurrency  int      `yaml:"concurrency,omitempty" toml:"concurrency,omitempty"`

	SSH SSHConfig `yaml:"ssh,omitempty" toml:"ssh,omitempty"`
	// Hosts holds per-host SSH overrides keyed by host name.
	Hosts map[string]SSHConfig `yaml:"hosts,omitempty" toml:"hosts,omitempty"`
}

// SSHConfig says how to reach a host. Zero fields inherit from Plan.SSH.
type SSHConfig struct {
	Address        string   `yaml:"address,omitempty" toml:"address,omitempty"`
	Port           int      `yaml:"port,omitempty" toml:"port,omitempty"`
	User           string   `yaml:"user,omitempty" toml:"user,omitempty"`
	Password       string   `yaml:"password,omitempty" toml:"password,omitempty"`
	PrivateKeyPath string   `yaml:"privateKeyPath,omitempty" toml:"privateKeyPath,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	KnownHostsFile string   `yaml:"knownHostsFile,omitempty" toml:"knownHostsFile,omitempty"`
}

// Duration reads "15s" style values from YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// TopologyInput is the host layout handed to the planner.
func (p *Plan) TopologyInput() topology.Input {
	return topology.Input{
		Master:                  p.Master,
		Compilers:               append([]string(nil), p.Compilers...),
		MasterReplica:           p.MasterReplica,
		PuppetDBDatabase:        p.PuppetDBDatabase,
		PuppetDBDatabaseReplica: p.PuppetDBDatabaseReplica,
	}
}

// KeySource returns where the control-repo key comes from, nil when none
// was given.
func (p *Plan) KeySource() (keymaterial.Source, error) {
	return keymaterial.NewSource(p.R10kPrivateKeyFile, p.R10kPrivateKeyContent)
}

// PEConfParams are the inputs of the pe.conf role skeletons.
func (p *Plan) PEConfParams() peconf.Params {
	return peconf.Params{
		Master:                  p.Master,
		PuppetDBDatabase:        p.PuppetDBDatabase,
		PuppetDBDatabaseReplica: p.PuppetDBDatabaseReplica,
		ConsolePassword:         p.ConsolePassword,
		DNSAltNames:             append([]string(nil), p.DNSAltNames...),
		R10kRemote:              p.R10kRemote,
	}
}
