package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"
)

type HostInfo struct {
	Hostname      string
	UptimeSeconds uint64
	OSName        string
	KernelVersion string
}

func ReadHost(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, fmt.Errorf("host info: %w", err)
	}
	return HostInfo{
		Hostname:      info.Hostname,
		UptimeSeconds: info.Uptime,
		OSName:        info.Platform,
		KernelVersion: info.KernelVersion,
	}, nil
}
