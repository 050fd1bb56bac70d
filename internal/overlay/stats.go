package overlay

import (
	"context"
	"sync/atomic"
	"time"
)

// FrameStats tracks render activity for the periodic debug log. Counters are
// atomic so the frame callback never blocks on the stats loop.
type FrameStats struct {
	frames       atomic.Uint64
	lastFrameAt  atomic.Int64
	lastFrameDur atomic.Int64
}

func NewFrameStats() *FrameStats {
	return &FrameStats{}
}

func (f *FrameStats) MarkFrame(took time.Duration) {
	f.frames.Add(1)
	f.lastFrameAt.Store(time.Now().UnixNano())
	f.lastFrameDur.Store(int64(took))
}

type StatsSnapshot struct {
	Frames        uint64        `json:"frames"`
	LastFrameAt   time.Time     `json:"last_frame_at"`
	LastFrameTook time.Duration `json:"last_frame_took"`
}

func (f *FrameStats) Snapshot() StatsSnapshot {
	s := StatsSnapshot{
		Frames:        f.frames.Load(),
		LastFrameTook: time.Duration(f.lastFrameDur.Load()),
	}
	if at := f.lastFrameAt.Load(); at > 0 {
		s.LastFrameAt = time.Unix(0, at).UTC()
	}
	return s
}

const statsInterval = 30 * time.Second

func (o *Overlay) runStatsLoop(ctx context.Context) error {
	t := time.NewTicker(statsInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			o.logger.Debug("overlay stats", "snapshot", o.stats.Snapshot())
		}
	}
}
