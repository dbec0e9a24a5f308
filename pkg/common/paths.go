package common

// This file defines the filesystem paths pexm writes to on target hosts and
// on the machine running pexm.

const (
	// PexmRootDirName is the local work directory created in the current
	// directory when no staging directory is configured.
	PexmRootDirName = ".pexm"

	// DefaultStagingDirName holds downloaded installer tarballs under the
	// work directory.
	DefaultStagingDirName = "staging"

	// DefaultLogFileName is the rotated JSON log written under the work directory.
	DefaultLogFileName = "pexm.log"

	// RemoteUploadDir is where installer tarballs and pe.conf land on targets.
	RemoteUploadDir = "/tmp"

	// PEConfPath is the composed pe.conf handed to the installer.
	PEConfPath = "/tmp/pe.conf"

	// PEInstallerDir receives the unpacked installer tarball with its
	// top-level directory stripped, whatever the release names it.
	PEInstallerDir = "/tmp/pexm-pe-installer"

	// CSRAttributesPath is read by the agent when it generates its CSR.
	CSRAttributesPath = "/etc/puppetlabs/puppet/csr_attributes.yaml"

	// R10kPrivateKeyDir is chowned recursively to the service user.
	R10kPrivateKeyDir = "/etc/puppetlabs/puppetserver/ssh"
	// R10kPrivateKeyPath is pinned into the master pe.conf so code manager
	// can reach the control repository.
	R10kPrivateKeyPath = R10kPrivateKeyDir + "/id-control_repo.rsa"
	// R10kPrivateKeyMode is the mode of the deployed control-repo key.
	R10kPrivateKeyMode = "0400"

	// AutosignPath is the allow-list of certnames signed without review.
	AutosignPath = "/etc/puppetlabs/puppet/autosign.conf"

	// CodeStagingDir is the file-sync staging area on the master.
	CodeStagingDir = "/etc/puppetlabs/code-staging"
	// ProductionSitePPPath is the placeholder manifest of the production
	// environment committed before replication is configured.
	ProductionSitePPPath = CodeStagingDir + "/environments/production/manifests/site.pp"

	// RBACTokenPath is where puppet-access and the code manager CLI look
	// for the administrative API token.
	RBACTokenPath = "/root/.puppetlabs/token"

	// PuppetBinDir holds the agent-side CLI tools.
	PuppetBinDir = "/opt/puppetlabs/bin"
	// PuppetCurl is the curl shipped with the agent, linked against its TLS stack.
	PuppetCurl = "/opt/puppetlabs/puppet/bin/curl"
	// PuppetSSLDir holds the agent certificates used to talk to the master.
	PuppetSSLDir = "/etc/puppetlabs/puppet/ssl"
)
