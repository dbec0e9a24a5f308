package common

// Service users and units on an installed node.
const (
	PEPuppetUser    = "pe-puppet"
	PEPuppetGroup   = "pe-puppet"
	PuppetDBService = "pe-puppetdb"
	DefaultRBACUser = "admin"
)

// Certificate extension OIDs written into csr_attributes.yaml and passed to
// the agent installer.
const (
	ExtensionRoleOID              = "1.3.6.1.4.1.34380.1.1.9812"
	ExtensionAvailabilityGroupOID = "1.3.6.1.4.1.34380.1.1.9813"
)

// Role values carried in the role extension.
const (
	RoleMaster           = "puppet/master"
	RolePuppetDBDatabase = "puppet/puppetdb-database"
	RoleCompiler         = "puppet/compiler"
)

// DefaultInstallerURLTemplate is rendered with .Version and .Platform.
const DefaultInstallerURLTemplate = "https://s3.amazonaws.com/pe-builds/released/{{ .Version }}/puppet-enterprise-{{ .Version }}-{{ .Platform }}.tar.gz"

// InstallerBinaryName is the entry point inside the installer tarball.
const InstallerBinaryName = "puppet-enterprise-installer"
