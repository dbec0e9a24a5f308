package peconf

import (
	"sort"

	"github.com/mensylisir/pexm/pkg/common"
)

// placeholderPassword is what database nodes get for the console password;
// they never serve the console.
const placeholderPassword = "not used"

// Params are the install inputs the role skeletons draw from.
type Params struct {
	Master                  string
	PuppetDBDatabase        string
	PuppetDBDatabaseReplica string
	ConsolePassword         string
	DNSAltNames             []string
	R10kRemote              string
}

// BaseFields returns the fixed skeleton for role.
func BaseFields(role Role, p Params) map[string]interface{} {
	switch role {
	case RoleMaster:
		base := map[string]interface{}{
			KeyConsoleAdminPassword:     p.ConsolePassword,
			KeyPuppetMasterHost:         p.Master,
			KeyDNSAltNames:              append([]string{}, p.DNSAltNames...),
			KeyCodeManagerAutoConfigure: true,
			KeyR10kPrivateKey:           common.R10kPrivateKeyPath,
		}
		if p.PuppetDBDatabase != "" {
			base[KeyPuppetDBDatabaseHost] = p.PuppetDBDatabase
		}
		if p.R10kRemote != "" {
			base[KeyR10kRemote] = p.R10kRemote
		}
		return base
	case RolePuppetDBDatabase:
		return databaseBase(p.Master, p.PuppetDBDatabase)
	case RolePuppetDBDatabaseReplica:
		return databaseBase(p.Master, p.PuppetDBDatabaseReplica)
	default:
		return map[string]interface{}{}
	}
}

func databaseBase(master, database string) map[string]interface{} {
	return map[string]interface{}{
		KeyConsoleAdminPassword: placeholderPassword,
		KeyPuppetMasterHost:     master,
		KeyDatabaseHost:         database,
	}
}

// Compose merges overlay over base one level deep: overlay keys replace
// base keys, nested values are replaced whole, and keys only present on
// one side are kept. Neither input is modified.
func Compose(role Role, base, overlay map[string]interface{}) *Bundle {
	b := &Bundle{Role: role}
	for _, k := range sortedKeys(base) {
		b.Set(k, base[k])
	}
	for _, k := range sortedKeys(overlay) {
		b.Set(k, overlay[k])
	}
	return b
}

// ComposeAll builds the bundle for every role the topology needs. Database
// bundles are only produced when the matching host exists.
func ComposeAll(p Params, overlay map[string]interface{}) map[Role]*Bundle {
	out := map[Role]*Bundle{
		RoleMaster: Compose(RoleMaster, BaseFields(RoleMaster, p), overlay),
	}
	if p.PuppetDBDatabase != "" {
		out[RolePuppetDBDatabase] = Compose(RolePuppetDBDatabase, BaseFields(RolePuppetDBDatabase, p), overlay)
	}
	if p.PuppetDBDatabaseReplica != "" {
		out[RolePuppetDBDatabaseReplica] = Compose(RolePuppetDBDatabaseReplica, BaseFields(RolePuppetDBDatabaseReplica, p), overlay)
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
