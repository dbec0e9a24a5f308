package runner

import (
	"strings"

	"github.com/mensylisir/pexm/pkg/connector"
)

var elFamily = map[string]bool{
	"rhel": true, "centos": true, "rocky": true, "almalinux": true,
	"ol": true, "oracle": true, "scientific": true, "amzn": true,
}

// PlatformTag maps OS facts to the tag used in installer tarball names:
// el-<major>-<arch>, sles-<major>-<arch>, ubuntu-<version>-<debarch> or
// debian-<major>-<debarch>.
func PlatformTag(osInfo *connector.OS) string {
	if osInfo == nil || osInfo.ID == "" || osInfo.VersionID == "" {
		return ""
	}
	id := strings.ToLower(osInfo.ID)
	major := strings.SplitN(osInfo.VersionID, ".", 2)[0]
	arch := osInfo.Arch
	if arch == "" {
		arch = "x86_64"
	}

	switch {
	case elFamily[id]:
		return "el-" + major + "-" + arch
	case id == "sles" || id == "sled" || strings.HasPrefix(id, "opensuse"):
		return "sles-" + major + "-" + arch
	case id == "ubuntu":
		return "ubuntu-" + osInfo.VersionID + "-" + debianArch(arch)
	case id == "debian":
		return "debian-" + major + "-" + debianArch(arch)
	}
	return ""
}

func debianArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	}
	return arch
}
