// Package surface owns the on-screen layer surface: its buffer pool, timer
// and input events, and the commit protocol. One cooperative loop drives the
// whole frame pipeline; nothing here is touched from more than one goroutine.
package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"waysky/internal/wayland"
)

type state int

const (
	stateCreated state = iota
	stateConfigured
	stateRunning
	stateClosing
)

// ErrClosed reports that the compositor destroyed the layer surface; the
// overlay has no reason to exist without it.
var ErrClosed = errors.New("layer surface closed by compositor")

// teardown waits this long for the in-flight frame callback before releasing
// buffers, so we never free memory the compositor is presenting from.
const teardownGrace = 500 * time.Millisecond

type Options struct {
	Width          uint32
	Height         uint32
	Anchor         uint32
	Layer          uint32
	MarginX        int32
	MarginY        int32
	UpdateInterval time.Duration
}

// Surface is the presentation end of the pipeline. All fields are owned by
// the loop goroutine.
type Surface struct {
	logger *slog.Logger
	opts   Options
	frame  FrameFunc

	conn       *wayland.Conn
	compositor *wayland.Compositor
	shm        *wayland.Shm
	wlSurface  *wayland.Surface
	layer      *wayland.LayerSurface
	seat       *wayland.Seat
	pointer    *wayland.Pointer
	pool       *wayland.BufferPool

	state         state
	width, height uint32
	scroll        float64
	contentHeight float64
	gate          commitGate
	closedByPeer  bool
}

type global struct {
	name    uint32
	version uint32
}

// New connects to the compositor, binds the required globals, and creates
// the layer surface. The surface stays in Created state until the first
// configure event arrives inside Run.
func New(logger *slog.Logger, opts Options, frame FrameFunc) (*Surface, error) {
	conn, err := wayland.Connect()
	if err != nil {
		return nil, err
	}

	s := &Surface{
		logger: logger,
		opts:   opts,
		frame:  frame,
		conn:   conn,
		state:  stateCreated,
		width:  opts.Width,
		height: opts.Height,
	}

	globals := map[string]global{}
	registry := conn.Display.GetRegistry()
	registry.OnGlobal = func(name uint32, iface string, version uint32) {
		globals[iface] = global{name: name, version: version}
	}
	if err := s.roundtrip(); err != nil {
		conn.Close()
		return nil, err
	}

	compositor, ok := globals["wl_compositor"]
	if !ok || compositor.version < 4 {
		conn.Close()
		return nil, fmt.Errorf("compositor lacks wl_compositor >= 4")
	}
	shm, ok := globals["wl_shm"]
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("compositor lacks wl_shm")
	}
	layerShell, ok := globals["zwlr_layer_shell_v1"]
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("compositor lacks zwlr_layer_shell_v1")
	}

	s.compositor = registry.BindCompositor(compositor.name, 4)
	s.shm = registry.BindShm(shm.name, 1)

	if seat, ok := globals["wl_seat"]; ok {
		s.seat = registry.BindSeat(seat.name, 1)
		s.seat.OnCapabilities = func(caps uint32) {
			if caps&wayland.CapabilityPointer != 0 && s.pointer == nil {
				s.pointer = s.seat.GetPointer()
				s.pointer.OnAxis = s.handleAxis
			}
		}
	}

	shell := registry.BindLayerShell(layerShell.name, 1)
	s.wlSurface = s.compositor.CreateSurface()
	s.layer = shell.GetLayerSurface(s.wlSurface, opts.Layer, "waysky")
	s.layer.OnConfigure = s.handleConfigure
	s.layer.OnClosed = func() { s.closedByPeer = true }

	s.layer.SetAnchor(opts.Anchor)
	s.layer.SetSize(opts.Width, opts.Height)
	s.layer.SetExclusiveZone(-1)
	s.layer.SetKeyboardInteractivity(0)
	top, right, bottom, left := marginsFor(opts)
	s.layer.SetMargin(top, right, bottom, left)
	s.wlSurface.Commit()

	if err := conn.Err(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// marginsFor places the configured offsets on the anchored edges, so the
// same X/Y values mean "distance from the corner" for every anchor.
func marginsFor(opts Options) (top, right, bottom, left int32) {
	if opts.Anchor&wayland.AnchorTop != 0 {
		top = opts.MarginY
	}
	if opts.Anchor&wayland.AnchorBottom != 0 {
		bottom = opts.MarginY
	}
	if opts.Anchor&wayland.AnchorRight != 0 {
		right = opts.MarginX
	}
	if opts.Anchor&wayland.AnchorLeft != 0 {
		left = opts.MarginX
	}
	return top, right, bottom, left
}

// Run drives the steady-state redraw loop until ctx is canceled, the
// compositor closes the surface, or the connection fails. Only cancellation
// returns nil.
func (s *Surface) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return nil

		case ev, ok := <-s.conn.Events():
			if !ok {
				return fmt.Errorf("compositor connection lost: %w", s.conn.Err())
			}
			if err := s.conn.Dispatch(ev); err != nil {
				s.teardown()
				return err
			}
			if s.closedByPeer {
				s.teardown()
				return ErrClosed
			}

		case <-ticker.C:
			s.requestRedraw()
		}

		if err := s.conn.Err(); err != nil {
			return err
		}
	}
}

// roundtrip drains events until the compositor acknowledges a sync, used
// only during setup before the loop owns the event channel.
func (s *Surface) roundtrip() error {
	done := false
	cb := s.conn.Display.Sync()
	cb.Done = func(uint32) { done = true }
	if err := s.conn.Err(); err != nil {
		return err
	}
	for !done {
		ev, ok := <-s.conn.Events()
		if !ok {
			return fmt.Errorf("compositor connection lost: %w", s.conn.Err())
		}
		if err := s.conn.Dispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *Surface) handleConfigure(serial, width, height uint32) {
	if width == 0 {
		width = s.opts.Width
	}
	if height == 0 {
		height = s.opts.Height
	}
	s.layer.AckConfigure(serial)

	if s.pool == nil || width != s.width || height != s.height {
		if s.pool != nil {
			s.pool.Destroy()
		}
		pool, err := wayland.NewBufferPool(s.shm, int32(width), int32(height))
		if err != nil {
			// Buffer allocation failure is fatal; surface the error through
			// the connection so the loop exits.
			s.logger.Error("buffer pool allocation failed", "error", err)
			s.conn.Close()
			return
		}
		pool.OnRelease = s.handleBufferRelease
		s.pool = pool
		s.width = width
		s.height = height
	}

	if s.state == stateCreated {
		s.state = stateConfigured
	}
	s.logger.Debug("surface configured", "width", width, "height", height)
	s.requestRedraw()
}

func (s *Surface) handleAxis(axis uint32, value float64) {
	if axis != wayland.AxisVertical {
		return
	}
	s.scroll = clampScroll(s.scroll+value, s.contentHeight, float64(s.height))
	s.requestRedraw()
}

// requestRedraw draws now if no commit is in flight, otherwise coalesces the
// request into the gate's pending flag.
func (s *Surface) requestRedraw() {
	if s.state < stateConfigured || s.state == stateClosing {
		return
	}
	if !s.gate.TryBegin() {
		return
	}
	s.draw()
}

// draw runs the full pipeline once and commits the result, releasing the
// gate itself when no commit could happen. It reports whether a commit
// actually happened.
func (s *Surface) draw() bool {
	if s.pool == nil || s.width == 0 || s.height == 0 {
		s.gate.Cancel()
		return false
	}
	buf := s.pool.Next()
	if buf == nil {
		// Both buffers are held by the compositor; the release event
		// retries the coalesced request.
		s.gate.Cancel()
		s.gate.pending = true
		return false
	}

	frame := s.frame(int(s.width), int(s.height), s.scroll)
	s.contentHeight = frame.ContentHeight
	s.scroll = clampScroll(s.scroll, s.contentHeight, float64(s.height))

	swizzleRGBABGRA(buf.Data, frame.Pix)
	buf.MarkBusy()

	s.wlSurface.Attach(buf.Buf)
	s.wlSurface.DamageBuffer(0, 0, int32(s.width), int32(s.height))
	cb := s.wlSurface.Frame()
	cb.Done = func(uint32) { s.onFrameDone() }
	s.wlSurface.Commit()

	s.state = stateRunning
	return true
}

func (s *Surface) onFrameDone() {
	if s.state == stateClosing {
		s.gate.Cancel()
		return
	}
	if s.gate.Complete() {
		s.draw()
	}
}

// handleBufferRelease retries a redraw that was deferred because both
// buffers were in flight.
func (s *Surface) handleBufferRelease() {
	if s.state == stateClosing || !s.gate.pending {
		return
	}
	s.gate.pending = false
	s.requestRedraw()
}

// teardown waits briefly for the in-flight frame callback, then releases
// buffers and destroys the surface.
func (s *Surface) teardown() {
	s.state = stateClosing

	if s.gate.inFlight {
		deadline := time.After(teardownGrace)
	wait:
		for s.gate.inFlight {
			select {
			case ev, ok := <-s.conn.Events():
				if !ok {
					break wait
				}
				_ = s.conn.Dispatch(ev)
			case <-deadline:
				break wait
			}
		}
	}

	if s.layer != nil {
		s.layer.Destroy()
	}
	if s.wlSurface != nil {
		s.wlSurface.Destroy()
	}
	if s.pool != nil {
		s.pool.Destroy()
	}
	s.conn.Close()
}
