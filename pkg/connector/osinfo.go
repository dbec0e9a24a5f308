package connector

import (
	"context"
	"fmt"
	"strings"
)

type execer interface {
	Exec(ctx context.Context, cmd string, opts *ExecOptions) ([]byte, []byte, error)
}

func detectOS(ctx context.Context, c execer) (*OS, error) {
	content, _, err := c.Exec(ctx, "cat /etc/os-release", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read /etc/os-release: %w", err)
	}
	osInfo := ParseOSRelease(string(content))

	arch, _, err := c.Exec(ctx, "uname -m", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get architecture: %w", err)
	}
	osInfo.Arch = strings.TrimSpace(string(arch))

	kernel, _, err := c.Exec(ctx, "uname -r", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get kernel version: %w", err)
	}
	osInfo.Kernel = strings.TrimSpace(string(kernel))
	return osInfo, nil
}

// ParseOSRelease reads the ID, VERSION_ID and PRETTY_NAME fields of an
// os-release file.
func ParseOSRelease(content string) *OS {
	osInfo := &OS{}
	for _, line := range strings.Split(content, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "=", 2)
		if len(parts) != 2 {
			continue
		}
		val := strings.Trim(parts[1], "\"'")
		switch parts[0] {
		case "ID":
			osInfo.ID = val
		case "VERSION_ID":
			osInfo.VersionID = val
		case "PRETTY_NAME":
			osInfo.PrettyName = val
		}
	}
	return osInfo
}
