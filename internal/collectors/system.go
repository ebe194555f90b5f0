package collectors

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// OSName 返回发行版名称和版本，例如 "ubuntu 22.04"
func (p *HostProbes) OSName(ctx context.Context) (string, error) {
	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return "", err
	}
	return osName(platform, family, version), nil
}

func osName(platform, family, version string) string {
	name := platform
	if name == "" {
		name = family
	}
	if name == "" {
		return runtime.GOOS
	}
	return strings.TrimSpace(name + " " + version)
}

// Uptime 返回开机时长，单位秒
func (p *HostProbes) Uptime(ctx context.Context) (uint64, error) {
	return host.UptimeWithContext(ctx)
}
