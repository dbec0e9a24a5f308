package operation

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/mensylisir/pexm/pkg/common"
)

// Names of the operations used by the install pipeline.
const (
	Hostname        = "hostname"
	PEInstall       = "pe_install"
	PuppetDBRestart = "puppetdb_restart"
	RBACToken       = "rbac_token"
	FileSyncCommit  = "file_sync_commit"
	AgentInstall    = "agent_install"
	SubmitCSR       = "submit_csr"
	SignCSR         = "sign_csr"
	PuppetRunOnce   = "puppet_runonce"
)

const puppet = common.PuppetBinDir + "/puppet"

// Builtin returns a registry with every pipeline operation.
//
// Params per operation:
//
//	pe_install:       Tarball, ConfigPath
//	rbac_token:       Master, User, Password
//	file_sync_commit: Master
//	agent_install:    Master, DNSAltNames ([]string), Role, Cluster
//	sign_csr:         Certnames ([]string)
func Builtin() *Registry {
	return NewRegistry(
		Definition{
			Name:     Hostname,
			Template: `hostname -f 2>/dev/null || hostname`,
		},
		Definition{
			Name: PEInstall,
			Template: `{{- $dir := .InstallDir | shellquote -}}
rm -rf {{ $dir }} && mkdir -p {{ $dir }} && tar -xzf {{ .Tarball | shellquote }} -C {{ $dir }} --strip-components=1 && ` +
				`cd {{ $dir }} && ./` + common.InstallerBinaryName + ` -y -c {{ .ConfigPath | shellquote }}`,
			Sudo: true,
		},
		Definition{
			Name: PuppetDBRestart,
			Template: puppet + ` resource service ` + common.PuppetDBService + ` ensure=stopped && ` +
				puppet + ` resource service ` + common.PuppetDBService + ` ensure=running`,
			Sudo: true,
		},
		Definition{
			Name:     RBACToken,
			Template: common.PuppetCurl + ` -s -k -X POST -H 'Content-Type: application/json' -d @- https://{{ .Master }}:4433/rbac-api/v1/auth/token`,
			// The body carries the console password; keep it off the command line.
			Stdin: `{{ dict "login" .User "password" .Password "lifetime" "1y" | toJson }}`,
			Parse: parseToken,
		},
		Definition{
			Name: FileSyncCommit,
			Template: common.PuppetCurl + ` -s -X POST -H 'Content-Type: application/json'` +
				` --cert ` + common.PuppetSSLDir + `/certs/{{ .Master }}.pem` +
				` --key ` + common.PuppetSSLDir + `/private_keys/{{ .Master }}.pem` +
				` --cacert ` + common.PuppetSSLDir + `/certs/ca.pem` +
				` -d '{"commit-all": true}' https://{{ .Master }}:8140/file-sync/v1/commit`,
			Sudo:  true,
			Parse: parseCommit,
		},
		Definition{
			Name: AgentInstall,
			Template: `curl -s -k https://{{ .Master }}:8140/packages/current/install.bash | bash -s -- --puppet-service-ensure stopped` +
				` main:dns_alt_names={{ join "," .DNSAltNames | shellquote }}` +
				` extension_requests:` + common.ExtensionRoleOID + `={{ .Role | shellquote }}` +
				` extension_requests:` + common.ExtensionAvailabilityGroupOID + `={{ .Cluster | shellquote }}`,
			Sudo: true,
		},
		Definition{
			Name:     SubmitCSR,
			Template: puppet + ` ssl submit_request`,
			Sudo:     true,
		},
		Definition{
			Name:     SignCSR,
			Template: common.PuppetBinDir + `/puppetserver ca sign --certname {{ join "," .Certnames | shellquote }}`,
			Sudo:     true,
		},
		Definition{
			Name:     PuppetRunOnce,
			Template: puppet + ` agent --onetime --no-daemonize --no-usecacheonfailure --no-splay --detailed-exitcodes`,
			Sudo:     true,
			// 2: the run succeeded and applied changes
			AcceptExitCodes: []int{2},
		},
	)
}

func parseToken(stdout []byte) (string, error) {
	if !gjson.ValidBytes(stdout) {
		return "", fmt.Errorf("token response is not JSON: %q", string(stdout))
	}
	res := gjson.ParseBytes(stdout)
	if token := res.Get("token"); token.Exists() && token.String() != "" {
		return token.String(), nil
	}
	return "", fmt.Errorf("token request rejected: %s", apiError(res))
}

func parseCommit(stdout []byte) (string, error) {
	if !gjson.ValidBytes(stdout) {
		return "", fmt.Errorf("file-sync commit response is not JSON: %q", string(stdout))
	}
	res := gjson.ParseBytes(stdout)
	if res.Get("kind").Exists() {
		return "", fmt.Errorf("file-sync commit failed: %s", apiError(res))
	}
	return res.Raw, nil
}

func apiError(res gjson.Result) string {
	if msg := res.Get("msg"); msg.Exists() {
		return fmt.Sprintf("%s: %s", res.Get("kind").String(), msg.String())
	}
	return res.Raw
}
