package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"waysky/internal/model"
)

const (
	lineSpacing = 1.4
	paddingX    = 8
)

// Renderer rasterizes styled lines into an RGBA pixel buffer. It holds no
// per-frame state: identical inputs produce identical buffers.
type Renderer struct {
	font        *opentype.Font
	faces       map[float64]font.Face
	defaultFace font.Face

	fontSize float64
	fg       color.NRGBA
	bg       color.NRGBA
}

func New(fontSize float64, fgHex, bgHex string) (*Renderer, error) {
	fg, err := ParseHexColor(fgHex)
	if err != nil {
		return nil, fmt.Errorf("fg_color: %w", err)
	}
	bg, err := ParseHexColor(bgHex)
	if err != nil {
		return nil, fmt.Errorf("bg_color: %w", err)
	}

	f, err := loadFont()
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		font:     f,
		faces:    make(map[float64]font.Face),
		fontSize: fontSize,
		fg:       fg,
		bg:       bg,
	}
	r.defaultFace, err = r.faceFor(fontSize)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ContentHeight is the total stacked height of lines in pixels, independent
// of the viewport.
func (r *Renderer) ContentHeight(lines []model.StyledLine) float64 {
	var h float64
	for _, line := range lines {
		h += r.resolveSize(line.Style) * lineSpacing
	}
	return h
}

// Render rasterizes lines into a width*height*4 straight-alpha RGBA buffer.
// Lines stack top to bottom starting at -scroll; lines entirely outside the
// viewport are skipped. Compositing is premultiplied-alpha internally: window
// fill first, then each line's background behind its own extent, then glyphs.
func (r *Renderer) Render(lines []model.StyledLine, width, height int, scroll float64) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	if r.bg.A > 0 {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)
	}

	y := -scroll
	for _, line := range lines {
		size := r.resolveSize(line.Style)
		lineHeight := size * lineSpacing
		y += lineHeight

		// Baseline above the viewport: the whole line is clipped out.
		if y < 0 {
			continue
		}
		// Line top below the viewport: everything further down is too.
		if y-lineHeight > float64(height) {
			break
		}

		if line.Style.BGColor != "" {
			if bg, err := ParseHexColor(line.Style.BGColor); err == nil {
				rect := image.Rect(0, int(y-lineHeight), width, int(y))
				draw.Draw(dst, rect.Intersect(dst.Bounds()), image.NewUniform(bg), image.Point{}, draw.Over)
			}
		}

		fg := r.fg
		if line.Style.FGColor != "" {
			if c, err := ParseHexColor(line.Style.FGColor); err == nil {
				fg = c
			}
		}

		face := r.defaultFace
		if size != r.fontSize {
			if f, err := r.faceFor(size); err == nil {
				face = f
			}
		}

		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(fg),
			Face: face,
			Dot: fixed.Point26_6{
				X: fixed.I(paddingX),
				Y: fixed.Int26_6(y * 64),
			},
		}
		d.DrawString(line.Text)
	}

	return toStraightAlpha(dst.Pix)
}

func (r *Renderer) resolveSize(style model.LineStyle) float64 {
	if style.FontSize > 0 {
		return style.FontSize
	}
	return r.fontSize
}

// toStraightAlpha converts image.RGBA's premultiplied pixels into the
// straight-alpha layout the presentation surface expects.
func toStraightAlpha(pix []byte) []byte {
	out := make([]byte, len(pix))
	for i := 0; i+3 < len(pix); i += 4 {
		a := pix[i+3]
		switch a {
		case 0:
			// fully transparent, channels stay zero
		case 0xff:
			copy(out[i:i+3], pix[i:i+3])
		default:
			out[i] = uint8(uint16(pix[i]) * 0xff / uint16(a))
			out[i+1] = uint8(uint16(pix[i+1]) * 0xff / uint16(a))
			out[i+2] = uint8(uint16(pix[i+2]) * 0xff / uint16(a))
		}
		out[i+3] = a
	}
	return out
}
