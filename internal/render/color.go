package render

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Transparent is the zero colour.
var Transparent = color.RGBA{}

var namedColors = map[string]string{
	"black":     "#000000",
	"white":     "#ffffff",
	"red":       "#ff0000",
	"green":     "#008000",
	"blue":      "#0000ff",
	"yellow":    "#ffff00",
	"orange":    "#ffa500",
	"purple":    "#800080",
	"gray":      "#808080",
	"grey":      "#808080",
	"lightgray": "#d3d3d3",
	"steelblue": "#4682b4",
	"firebrick": "#b22222",
	"teal":      "#008080",
	"navy":      "#000080",
	"cyan":      "#00ffff",
	"magenta":   "#ff00ff",
}

// ParseColor parses a CSS-style colour: a name, #rgb, #rrggbb or
// rgb(r, g, b). Empty, "none" and "transparent" yield Transparent.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none", "transparent":
		return Transparent, true
	}

	if hex, ok := namedColors[s]; ok {
		s = hex
	}

	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return Transparent, false
		}
		var ch [3]uint8
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 || n > 255 {
				return Transparent, false
			}
			ch[i] = uint8(n)
		}
		return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}, true
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return Transparent, false
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, true
}

// WithOpacity scales a colour by opacity in [0, 1], premultiplied.
func WithOpacity(c color.RGBA, opacity float64) color.RGBA {
	switch {
	case opacity >= 1:
		return c
	case opacity <= 0:
		return Transparent
	}
	return color.RGBA{
		R: uint8(float64(c.R) * opacity),
		G: uint8(float64(c.G) * opacity),
		B: uint8(float64(c.B) * opacity),
		A: uint8(float64(c.A) * opacity),
	}
}

// Hex formats a colour as #rrggbb.
func Hex(c color.RGBA) string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

// Highlight lightens a colour for hovered items by blending towards white
// in Lab space.
func Highlight(c color.RGBA) color.RGBA {
	if c.A == 0 {
		return c
	}
	base := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	r, g, b := base.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.35).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: c.A}
}
