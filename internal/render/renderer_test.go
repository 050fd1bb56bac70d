package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waysky/internal/model"
)

func newTestRenderer(t *testing.T, bg string) *Renderer {
	t.Helper()
	r, err := New(12, "#ffffff", bg)
	require.NoError(t, err)
	return r
}

func TestNewRejectsBadColors(t *testing.T) {
	_, err := New(12, "white", "#000000aa")
	assert.Error(t, err)

	_, err = New(12, "#ffffff", "#xyz")
	assert.Error(t, err)
}

func TestContentHeight(t *testing.T) {
	r := newTestRenderer(t, "#000000aa")

	lines := []model.StyledLine{
		model.Plain("a"),
		model.Plain("b"),
		model.Plain("c"),
	}
	assert.InDelta(t, 3*12*lineSpacing, r.ContentHeight(lines), 1e-9)

	lines[1].Style.FontSize = 20
	assert.InDelta(t, (12+20+12)*lineSpacing, r.ContentHeight(lines), 1e-9)

	assert.Zero(t, r.ContentHeight(nil))
}

func TestRenderBufferSizeAndDeterminism(t *testing.T) {
	r := newTestRenderer(t, "#000000aa")
	lines := []model.StyledLine{model.Plain("hello"), model.Plain("world")}

	a := r.Render(lines, 64, 48, 0)
	require.Len(t, a, 64*48*4)

	b := r.Render(lines, 64, 48, 0)
	assert.Equal(t, a, b)
}

func TestRenderWindowBackgroundFill(t *testing.T) {
	r := newTestRenderer(t, "#102030ff")
	pix := r.Render(nil, 8, 8, 0)

	// No text drawn, so every pixel is the opaque window background.
	for i := 0; i < len(pix); i += 4 {
		require.Equal(t, []byte{0x10, 0x20, 0x30, 0xff}, pix[i:i+4])
	}
}

func TestRenderTransparentBackgroundStaysClear(t *testing.T) {
	r := newTestRenderer(t, "#00000000")
	pix := r.Render(nil, 8, 8, 0)

	for i := 0; i < len(pix); i += 4 {
		require.Equal(t, []byte{0, 0, 0, 0}, pix[i:i+4])
	}
}

func TestRenderLineBackgroundBand(t *testing.T) {
	r := newTestRenderer(t, "#000000ff")
	lines := []model.StyledLine{
		model.Styled(" ", model.LineStyle{BGColor: "#ff0000ff"}),
	}
	pix := r.Render(lines, 16, 64, 0)

	// Inside the first line's band the line background wins.
	inBand := pixelAt(pix, 16, 0, 2)
	assert.Equal(t, []byte{0xff, 0, 0, 0xff}, inBand)

	// Well below the line's extent only the window background remains.
	below := pixelAt(pix, 16, 0, 40)
	assert.Equal(t, []byte{0, 0, 0, 0xff}, below)
}

func TestRenderScrollClipsLines(t *testing.T) {
	r := newTestRenderer(t, "#000000ff")
	lines := []model.StyledLine{
		model.Styled(" ", model.LineStyle{BGColor: "#ff0000ff"}),
		model.Styled(" ", model.LineStyle{BGColor: "#00ff00ff"}),
	}
	lineHeight := 12 * lineSpacing

	// Scrolled past the first line, the second line's band occupies the top.
	pix := r.Render(lines, 16, 16, lineHeight)
	top := pixelAt(pix, 16, 0, 2)
	assert.Equal(t, []byte{0, 0xff, 0, 0xff}, top)

	unscrolled := r.Render(lines, 16, 16, 0)
	assert.NotEqual(t, unscrolled, pix)
}

func TestRenderDrawsGlyphs(t *testing.T) {
	r := newTestRenderer(t, "#000000ff")
	blank := r.Render(nil, 64, 32, 0)
	withText := r.Render([]model.StyledLine{model.Plain("MMMM")}, 64, 32, 0)
	assert.NotEqual(t, blank, withText)
}

func pixelAt(pix []byte, width, x, y int) []byte {
	off := (y*width + x) * 4
	return pix[off : off+4]
}
