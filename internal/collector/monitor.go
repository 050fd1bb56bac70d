package collector

import (
	"context"
	"log/slog"

	"waysky/internal/model"
	"waysky/internal/system"
)

// Monitor captures one immutable system snapshot per frame. A failed reader
// degrades that section to its zero value and logs a warning; a snapshot is
// always produced.
type Monitor struct {
	logger *slog.Logger
}

func NewMonitor(logger *slog.Logger) *Monitor {
	// Prime the kernel counters so the first frame's usage deltas are sane.
	_, _ = system.ReadCPU(context.Background())
	return &Monitor{logger: logger}
}

func (m *Monitor) Snapshot(ctx context.Context) *model.Snapshot {
	snap := &model.Snapshot{}

	if cpu, err := system.ReadCPU(ctx); err != nil {
		m.logger.Warn("cpu read failed", "error", err)
	} else {
		snap.CPUUsage = cpu.UsagePct
		snap.CPUPerCore = cpu.PerCorePct
		snap.CPUCount = cpu.Count
	}

	if mem, err := system.ReadMemory(ctx); err != nil {
		m.logger.Warn("memory read failed", "error", err)
	} else {
		snap.MemUsed = mem.UsedBytes
		snap.MemTotal = mem.TotalBytes
		snap.MemUsagePct = mem.UsagePct
		snap.SwapUsed = mem.SwapUsed
		snap.SwapTotal = mem.SwapTotal
	}

	if host, err := system.ReadHost(ctx); err != nil {
		m.logger.Warn("host read failed", "error", err)
	} else {
		snap.Hostname = host.Hostname
		snap.UptimeSeconds = host.UptimeSeconds
		snap.OSName = host.OSName
		snap.KernelVersion = host.KernelVersion
	}

	if disks, err := system.ReadDisks(ctx); err != nil {
		m.logger.Warn("disk read failed", "error", err)
	} else {
		snap.Disks = disks
	}

	if networks, err := system.ReadNetworks(ctx); err != nil {
		m.logger.Warn("network read failed", "error", err)
	} else {
		snap.Networks = networks
	}

	return snap
}
