package model

// LineStyle carries optional per-line overrides. Zero-value fields fall back
// to the general defaults at render time.
type LineStyle struct {
	FGColor  string  `json:"fg_color,omitempty" toml:"fg_color,omitempty"`
	BGColor  string  `json:"bg_color,omitempty" toml:"bg_color,omitempty"`
	FontSize float64 `json:"font_size,omitempty" toml:"font_size,omitempty"`
}

func (s LineStyle) IsZero() bool {
	return s.FGColor == "" && s.BGColor == "" && s.FontSize == 0
}

// StyledLine is one renderable text line. Lines are produced fresh every
// frame and never mutated after creation.
type StyledLine struct {
	Text  string
	Style LineStyle
}

func Plain(text string) StyledLine {
	return StyledLine{Text: text}
}

func Styled(text string, style LineStyle) StyledLine {
	return StyledLine{Text: text, Style: style}
}
