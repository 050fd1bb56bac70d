package surface

// Frame is one rendered frame: straight-alpha RGBA pixels plus the total
// content height used for scroll clamping.
type Frame struct {
	Pix           []byte
	ContentHeight float64
}

// FrameFunc produces a frame for the given viewport and scroll offset. It is
// called from the loop goroutine only and blocks the loop for its duration.
type FrameFunc func(width, height int, scroll float64) *Frame

// commitGate enforces the one-in-flight commit rule. Redraws requested while
// a commit is pending coalesce into a single flag, so back-to-back triggers
// cost at most one extra frame.
type commitGate struct {
	inFlight bool
	pending  bool
}

// TryBegin reports whether the caller may draw now. If a commit is already in
// flight the request is recorded instead.
func (g *commitGate) TryBegin() bool {
	if g.inFlight {
		g.pending = true
		return false
	}
	g.inFlight = true
	return true
}

// Cancel releases the gate when a permitted draw could not commit. Any
// pending request is dropped with it; a caller that wants a retry sets
// pending again after cancelling.
func (g *commitGate) Cancel() {
	g.inFlight = false
	g.pending = false
}

// Complete marks the in-flight commit presented. It reports whether a
// coalesced redraw should run now, in which case the gate stays held.
func (g *commitGate) Complete() bool {
	g.inFlight = false
	if g.pending {
		g.pending = false
		g.inFlight = true
		return true
	}
	return false
}

// clampScroll bounds offset to [0, max(0, contentHeight-viewportHeight)].
func clampScroll(offset, contentHeight, viewportHeight float64) float64 {
	max := contentHeight - viewportHeight
	if max < 0 {
		max = 0
	}
	switch {
	case offset < 0:
		return 0
	case offset > max:
		return max
	}
	return offset
}

// swizzleRGBABGRA converts between the renderer's RGBA byte order and the
// argb8888 little-endian layout (blue-green-red-alpha bytes). Swapping the
// red and blue channels makes the transform its own inverse.
func swizzleRGBABGRA(dst, src []byte) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i+3 < n; i += 4 {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
		dst[i+3] = src[i+3]
	}
}
