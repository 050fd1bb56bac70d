package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
)

type CPUInfo struct {
	UsagePct   float64
	PerCorePct []float64
	Count      uint64
}

// ReadCPU reports usage since the previous call; the first call after process
// start reports zero.
func ReadCPU(ctx context.Context) (CPUInfo, error) {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("cpu total usage: %w", err)
	}
	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("cpu per-core usage: %w", err)
	}
	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("cpu count: %w", err)
	}

	info := CPUInfo{PerCorePct: perCore, Count: uint64(count)}
	if len(total) > 0 {
		info.UsagePct = total[0]
	}
	return info, nil
}
