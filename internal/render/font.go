package render

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
)

// loadFont parses the bundled Go Mono face. The overlay carries its font as
// an embedded resource so rendering never depends on host font paths.
func loadFont() (*opentype.Font, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled font: %w", err)
	}
	return f, nil
}

// faceFor returns a cached font.Face for the given size, creating it on first
// use. Faces are only ever created and used on the loop goroutine.
func (r *Renderer) faceFor(size float64) (font.Face, error) {
	if face, ok := r.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face size %.1f: %w", size, err)
	}
	r.faces[size] = face
	return face, nil
}
