package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitGateCoalescesBursts(t *testing.T) {
	var g commitGate

	assert.True(t, g.TryBegin())

	// Three triggers while a commit is in flight collapse into one.
	assert.False(t, g.TryBegin())
	assert.False(t, g.TryBegin())
	assert.False(t, g.TryBegin())

	// Presentation hands the gate straight to the coalesced redraw.
	assert.True(t, g.Complete())

	// That redraw's presentation finds nothing pending.
	assert.False(t, g.Complete())
	assert.True(t, g.TryBegin())
}

func TestCommitGateCancelReleases(t *testing.T) {
	var g commitGate

	assert.True(t, g.TryBegin())
	g.Cancel()
	assert.True(t, g.TryBegin())
}

func TestCommitGateCancelDropsPending(t *testing.T) {
	var g commitGate

	assert.True(t, g.TryBegin())
	assert.False(t, g.TryBegin())
	g.Cancel()

	// A cancelled commit leaves no stale request behind: the next
	// presentation must not trigger a spurious extra frame.
	assert.True(t, g.TryBegin())
	assert.False(t, g.Complete())
}

func TestClampScroll(t *testing.T) {
	// Content taller than the viewport scrolls within [0, overflow].
	assert.Equal(t, 0.0, clampScroll(-5, 100, 40))
	assert.Equal(t, 30.0, clampScroll(30, 100, 40))
	assert.Equal(t, 60.0, clampScroll(999, 100, 40))

	// Content shorter than the viewport pins to zero.
	assert.Equal(t, 0.0, clampScroll(25, 30, 40))
	assert.Equal(t, 0.0, clampScroll(-1, 30, 40))
}

func TestBufferReleaseConsumesPendingRedraw(t *testing.T) {
	s := &Surface{state: stateConfigured}
	s.gate.pending = true

	// The retry attempts a draw; with no pool yet it cancels cleanly, but
	// the deferred request must have been consumed either way.
	s.handleBufferRelease()
	assert.False(t, s.gate.pending)
	assert.False(t, s.gate.inFlight)
}

func TestBufferReleaseIgnoredWhileClosing(t *testing.T) {
	s := &Surface{state: stateClosing}
	s.gate.pending = true

	s.handleBufferRelease()
	assert.True(t, s.gate.pending)
	assert.False(t, s.gate.inFlight)
}

func TestSwizzleRGBABGRAIsItsOwnInverse(t *testing.T) {
	src := []byte{
		0x11, 0x22, 0x33, 0x44,
		0xaa, 0xbb, 0xcc, 0xdd,
	}

	once := make([]byte, len(src))
	swizzleRGBABGRA(once, src)
	assert.Equal(t, []byte{0x33, 0x22, 0x11, 0x44, 0xcc, 0xbb, 0xaa, 0xdd}, once)

	twice := make([]byte, len(src))
	swizzleRGBABGRA(twice, once)
	assert.Equal(t, src, twice)
}

func TestSwizzleRGBABGRAIgnoresTrailingBytes(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, len(src))
	swizzleRGBABGRA(dst, src)
	assert.Equal(t, []byte{3, 2, 1, 4, 0, 0}, dst)
}
