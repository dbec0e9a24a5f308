package config

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mensylisir/pexm/pkg/connector"
)

// ConnectionFor merges the per-host override for host over the defaults.
// The host key callback is left unset.
func (p *Plan) ConnectionFor(host string) connector.ConnectionCfg {
	merged := p.SSH
	if o, ok := p.Hosts[host]; ok {
		if o.Address != "" {
			merged.Address = o.Address
		}
		if o.Port != 0 {
			merged.Port = o.Port
		}
		if o.User != "" {
			merged.User = o.User
		}
		if o.Password != "" {
			merged.Password = o.Password
		}
		if o.PrivateKeyPath != "" {
			merged.PrivateKeyPath = o.PrivateKeyPath
		}
		if o.Timeout.Duration != 0 {
			merged.Timeout = o.Timeout
		}
		if o.KnownHostsFile != "" {
			merged.KnownHostsFile = o.KnownHostsFile
		}
	}
	addr := merged.Address
	if addr == "" {
		addr = host
	}
	return connector.ConnectionCfg{
		Host:           addr,
		Port:           merged.Port,
		User:           merged.User,
		Password:       merged.Password,
		PrivateKeyPath: merged.PrivateKeyPath,
		Timeout:        merged.Timeout.Duration,
	}
}

// Resolver returns a function mapping each host to its connection settings,
// with host keys checked against the configured known_hosts files.
func (p *Plan) Resolver() (func(host string) connector.ConnectionCfg, error) {
	callbacks := map[string]ssh.HostKeyCallback{}
	load := func(file string) error {
		if file == "" {
			return nil
		}
		if _, ok := callbacks[file]; ok {
			return nil
		}
		cb, err := knownhosts.New(file)
		if err != nil {
			return errors.Wrapf(err, "failed to load known hosts file %s", file)
		}
		callbacks[file] = cb
		return nil
	}
	if err := load(p.SSH.KnownHostsFile); err != nil {
		return nil, err
	}
	for _, o := range p.Hosts {
		if err := load(o.KnownHostsFile); err != nil {
			return nil, err
		}
	}

	return func(host string) connector.ConnectionCfg {
		cfg := p.ConnectionFor(host)
		file := p.SSH.KnownHostsFile
		if o, ok := p.Hosts[host]; ok && o.KnownHostsFile != "" {
			file = o.KnownHostsFile
		}
		cfg.HostKeyCallback = callbacks[file]
		return cfg
	}, nil
}
