package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

type MemoryInfo struct {
	UsedBytes  uint64
	TotalBytes uint64
	UsagePct   float64
	SwapUsed   uint64
	SwapTotal  uint64
}

func ReadMemory(ctx context.Context) (MemoryInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("virtual memory: %w", err)
	}
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("swap memory: %w", err)
	}

	return MemoryInfo{
		UsedBytes:  vm.Used,
		TotalBytes: vm.Total,
		UsagePct:   vm.UsedPercent,
		SwapUsed:   swap.Used,
		SwapTotal:  swap.Total,
	}, nil
}
