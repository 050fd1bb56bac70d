package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"

	"waysky/internal/model"
)

// ReadDisks returns totals for every physical partition. A partition whose
// usage cannot be read is skipped rather than failing the whole read.
func ReadDisks(ctx context.Context) ([]model.DiskInfo, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	out := make([]model.DiskInfo, 0, len(parts))
	for _, p := range parts {
		usage, uErr := disk.UsageWithContext(ctx, p.Mountpoint)
		if uErr != nil {
			continue
		}
		out = append(out, model.DiskInfo{
			MountPoint:     p.Mountpoint,
			TotalBytes:     usage.Total,
			AvailableBytes: usage.Free,
		})
	}
	return out, nil
}
