package config

import (
	"path/filepath"
	"time"

	"github.com/mensylisir/pexm/pkg/common"
)

const (
	DefaultSSHPort       = 22
	DefaultSSHUser       = "root"
	DefaultSSHTimeout    = 30 * time.Second
	DefaultCSRSignDelay  = 15 * time.Second
	DefaultConcurrency   = 10
	DefaultDNSAltNameAll = "puppet"
)

// SetDefaults fills fields the user left empty. It modifies p in place.
func SetDefaults(p *Plan) {
	if p == nil {
		return
	}
	if p.SSH.Port == 0 {
		p.SSH.Port = DefaultSSHPort
	}
	if p.SSH.User == "" {
		p.SSH.User = DefaultSSHUser
	}
	if p.SSH.Timeout.Duration == 0 {
		p.SSH.Timeout.Duration = DefaultSSHTimeout
	}
	if p.CSRSignDelay.Duration == 0 {
		p.CSRSignDelay.Duration = DefaultCSRSignDelay
	}
	if p.Concurrency == 0 {
		p.Concurrency = DefaultConcurrency
	}
	if p.StagingDir == "" {
		p.StagingDir = filepath.Join(common.PexmRootDirName, common.DefaultStagingDirName)
	}
	if len(p.DNSAltNames) == 0 && p.Master != "" {
		p.DNSAltNames = []string{DefaultDNSAltNameAll, p.Master}
	}
	if p.PEConfData == nil {
		p.PEConfData = map[string]interface{}{}
	}
}
