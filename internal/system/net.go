package system

import (
	"context"
	"fmt"

	gopsnet "github.com/shirou/gopsutil/v3/net"

	"waysky/internal/model"
)

// ReadNetworks returns cumulative byte counters per interface, loopback
// excluded.
func ReadNetworks(ctx context.Context) ([]model.NetworkInfo, error) {
	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("net io counters: %w", err)
	}

	out := make([]model.NetworkInfo, 0, len(counters))
	for _, c := range counters {
		if c.Name == "lo" {
			continue
		}
		out = append(out, model.NetworkInfo{
			Interface: c.Name,
			RxBytes:   c.BytesRecv,
			TxBytes:   c.BytesSent,
		})
	}
	return out, nil
}
